package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	godbf "github.com/Ulysses-Xu/dbfcodec"
	"github.com/Ulysses-Xu/dbfcodec/internal/server"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP decode/encode server",
		Long: `Start the HTTP server.

Endpoints:
  POST /api/v1/decode?name=<file>  raw .dbf body, returns the table as JSON
  POST /api/v1/encode              table JSON body, returns the .dbf bytes
  GET  /api/v1/health
  GET  /metrics                    Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			return server.StartServer(cfg)
		},
	}
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	return serveCmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Reload a table whenever another process writes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbf, err := openTable(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			err = dbf.Watch(ctx, func(table *godbf.Table, err error) {
				if err != nil {
					return
				}
				if err := outputHeader(out, table); err != nil {
					log.Printf("watch: %v", err)
				}
			})
			if err != nil {
				return err
			}
			log.Printf("watch: watching %s (%d records)", args[0], dbf.NumRecords())
			<-ctx.Done()
			if ctx.Err() != context.Canceled {
				return ctx.Err()
			}
			return nil
		},
	}
}
