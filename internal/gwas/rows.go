package gwas

// Tuple is a split line with no type coercion and no named fields.
type Tuple []string

// Get always reports false; tuples are addressed by index.
func (t Tuple) Get(string) (any, bool) { return nil, false }

// Set always fails; tuples have no named fields.
func (t Tuple) Set(field string, _ any) error {
	return &ConfigError{Message: "tuple rows do not support name-based field access"}
}

// Line is an unparsed input line, yielded by readers that have no parser.
type Line string

// Get always reports false.
func (l Line) Get(string) (any, bool) { return nil, false }

// Set always fails.
func (l Line) Set(field string, _ any) error {
	return &ConfigError{Message: "raw lines do not support name-based field access"}
}
