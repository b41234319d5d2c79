package automator

// Version is the current version of the task automator.
const Version = "0.1.0"

// SMTPSettings is the alert transport. Alerts are only generated when every
// field is set.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
}

// CompileOptions configures the compilation process.
type CompileOptions struct {
	// OutputDir is the directory where scripts are written.
	// Defaults to current directory if not specified.
	OutputDir string

	// OutputName overrides the script name (without extension) when one
	// workflow is compiled. Otherwise scripts are named after their workflow.
	OutputName string

	// ModulePath is a Python file whose functions custom-function steps call.
	ModulePath string

	// SMTP enables alert e-mails for steps that ask for them.
	SMTP *SMTPSettings

	// Python, when set, validates scripts with this interpreter instead of the
	// built-in grammar check.
	Python string

	// SkipWrite generates and validates scripts without writing them.
	SkipWrite bool

	// SaveTemplate also writes each workflow as <name>_template.json.
	SaveTemplate bool
}

// DefaultOptions returns a new CompileOptions with default values.
func DefaultOptions() *CompileOptions {
	return &CompileOptions{
		OutputDir: ".",
	}
}

// Option is a functional option for configuring compilation.
type Option func(*CompileOptions)

// WithOutputDir sets the output directory.
func WithOutputDir(dir string) Option {
	return func(o *CompileOptions) {
		o.OutputDir = dir
	}
}

// WithOutputName sets the output script name.
func WithOutputName(name string) Option {
	return func(o *CompileOptions) {
		o.OutputName = name
	}
}

// WithModule sets the external Python module.
func WithModule(path string) Option {
	return func(o *CompileOptions) {
		o.ModulePath = path
	}
}

// WithSMTP enables alert e-mails.
func WithSMTP(host string, port int, username, password string) Option {
	return func(o *CompileOptions) {
		o.SMTP = &SMTPSettings{Host: host, Port: port, Username: username, Password: password}
	}
}

// WithInterpreter validates scripts with a Python interpreter.
func WithInterpreter(python string) Option {
	return func(o *CompileOptions) {
		o.Python = python
	}
}

// WithSkipWrite only generates and validates, writing nothing.
func WithSkipWrite() Option {
	return func(o *CompileOptions) {
		o.SkipWrite = true
	}
}

// WithTemplate also saves the workflow template next to each script.
func WithTemplate() Option {
	return func(o *CompileOptions) {
		o.SaveTemplate = true
	}
}

// ApplyOptions applies functional options to CompileOptions.
func ApplyOptions(opts ...Option) *CompileOptions {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CompileFileWith compiles a workflow file with functional options.
//
// Example:
//
//	result, err := automator.CompileFileWith("workflow.yaml",
//	    automator.WithOutputDir("./dist"),
//	    automator.WithModule("./helpers.py"),
//	)
func CompileFileWith(inputPath string, opts ...Option) (*CompileResult, error) {
	return CompileFile(inputPath, ApplyOptions(opts...))
}

// CompileWith compiles workflows with functional options.
func CompileWith(workflows []*Workflow, opts ...Option) (*CompileResult, error) {
	return Compile(workflows, ApplyOptions(opts...))
}
