package godbf

// Cell is one named value of a row.
type Cell struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Row keeps its cells in field descriptor order.
type Row []Cell

// Get returns the value stored under name, or Null when the row has no such cell.
func (r Row) Get(name string) Value {
	for _, c := range r {
		if c.Name == name {
			return c.Value
		}
	}
	return Null()
}

func (r Row) Has(name string) bool {
	for _, c := range r {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Set replaces the value under name or appends a new cell.
func (r Row) Set(name string, v Value) Row {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = v
			return r
		}
	}
	return append(r, Cell{Name: name, Value: v})
}

func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

func (r Row) Equal(o Row) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i].Name != o[i].Name || !r[i].Value.Equal(o[i].Value) {
			return false
		}
	}
	return true
}
