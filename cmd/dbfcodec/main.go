package main

import "github.com/Ulysses-Xu/dbfcodec/cmd/dbfcodec/cmd"

func main() {
	cmd.Execute()
}
