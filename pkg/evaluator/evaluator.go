package evaluator

// Package evaluator implements the pipelens expression evaluation engine.
//
// The evaluator receives a parsed and transformed expression tree and
// evaluates it against variable bindings. It supports:
//   - Pipeline application (x |> f, x |> f(a))
//   - Built-in and user-registered functions
//   - Variable bindings and nested scopes
//   - Inspect reports written to a configurable writer
//   - Timeout and cancellation via context.Context
//
// # Example
//
//	eval := evaluator.New()
//	result, err := eval.EvalWithBindings(ctx, expr, map[string]interface{}{"x": 7.0})
//	if err != nil {
//	    log.Fatal(err)
//	}

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pipelens/pipelens/pkg/cache"
	"github.com/pipelens/pipelens/pkg/inspect"
	"github.com/pipelens/pipelens/pkg/parser"
	"github.com/pipelens/pipelens/pkg/types"
)

// CustomFunc is the implementation of a user-registered function.
type CustomFunc func(ctx context.Context, args ...interface{}) (interface{}, error)

// CustomFunctionDef holds a user-defined function to register with the
// evaluator.
type CustomFunctionDef struct {
	Name string
	Fn   CustomFunc
}

// Evaluator evaluates pipeline expressions against variable bindings.
type Evaluator struct {
	opts      EvalOptions
	logger    *slog.Logger
	cache     *cache.Cache            // non-nil when Caching is enabled
	customFns map[string]*FunctionDef // user-registered custom functions
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Caching enables script compilation caching in EvalSource, on by
	// default. Compiled scripts are cached by profile and source text;
	// the default cache holds up to 256 entries with LRU eviction.
	Caching bool
	// CacheSize sets the maximum number of cached scripts.
	// Only used when Caching is true and no explicit Cache is provided.
	CacheSize int
	// Cache is a custom script cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// Profile is the execution profile instrumentation is gated on;
	// "" reads PIPELENS_ENV.
	Profile string
	// Gate decides in which profiles instrumentation is live; nil means
	// the default gate.
	Gate *inspect.Gate
	// ReportWriter receives inspect reports. Defaults to os.Stderr.
	ReportWriter io.Writer
	// Color enables ANSI styling of report headers.
	Color bool
	// MaxDepth limits recursion depth.
	MaxDepth int
	// Timeout sets evaluation timeout.
	Timeout time.Duration
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
	// CustomFunctions holds user-defined functions to register with the evaluator.
	CustomFunctions []CustomFunctionDef
}

// New creates a new Evaluator with default options.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Caching:  true,
		MaxDepth: 10000,
		Timeout:  30 * time.Second,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	// Initialise the script cache when caching is enabled.
	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		c = cache.New(options.CacheSize)
	}

	customFns := make(map[string]*FunctionDef, len(options.CustomFunctions))
	for _, cfd := range options.CustomFunctions {
		cfd := cfd
		customFns[cfd.Name] = &FunctionDef{
			Name:    cfd.Name,
			MinArgs: 0,
			MaxArgs: -1,
			Impl: func(ctx context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
				return cfd.Fn(ctx, args...)
			},
		}
	}

	return &Evaluator{
		opts:      options,
		logger:    options.Logger,
		cache:     c,
		customFns: customFns,
	}
}

// Cache returns the script cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache {
	return e.cache
}

// getCustomFunction returns a user-defined custom function by name, or (nil, false).
func (e *Evaluator) getCustomFunction(name string) (*FunctionDef, bool) {
	if len(e.customFns) == 0 {
		return nil, false
	}
	fn, ok := e.customFns[name]
	return fn, ok
}

// profile returns the active execution profile.
func (e *Evaluator) profile() string {
	if e.opts.Profile != "" {
		return e.opts.Profile
	}
	return inspect.CurrentProfile()
}

// transformConfig builds the instrumentation transform configuration
// from the evaluator options.
func (e *Evaluator) transformConfig() inspect.Config {
	return inspect.Config{
		Profile: e.profile(),
		Gate:    e.opts.Gate,
	}
}

// Eval evaluates a compiled expression with no variable bindings.
func (e *Evaluator) Eval(ctx context.Context, expr *types.Expression) (interface{}, error) {
	return e.EvalWithBindings(ctx, expr, nil)
}

// EvalWithBindings evaluates a compiled expression with variable bindings.
func (e *Evaluator) EvalWithBindings(ctx context.Context, expr *types.Expression, bindings map[string]interface{}) (interface{}, error) {
	if expr == nil || expr.AST() == nil {
		return nil, fmt.Errorf("invalid expression")
	}

	// Apply timeout if configured
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	evalCtx := NewContext()
	if bindings != nil {
		evalCtx.SetBindings(bindings)
	}

	// Shared depth counter for this evaluation tree; evalNode
	// increments and decrements it on every node visit.
	if e.opts.MaxDepth > 0 {
		ctx = withDepthCounter(ctx)
	}

	result, err := e.evalNode(ctx, expr.AST(), evalCtx)
	if err != nil {
		return nil, err
	}

	return convertNullToNil(result), nil
}

// EvalSource compiles a script (parse plus instrumentation transform)
// and evaluates it. When caching is enabled the compiled form is reused
// across calls with the same profile and source.
func (e *Evaluator) EvalSource(ctx context.Context, source string, bindings map[string]interface{}) (interface{}, error) {
	expr, err := e.CompileSource(ctx, source)
	if err != nil {
		return nil, err
	}
	return e.EvalWithBindings(ctx, expr, bindings)
}

// CompileSource parses and transforms a script under the evaluator's
// profile, consulting the cache when one is configured.
func (e *Evaluator) CompileSource(ctx context.Context, source string) (*types.Expression, error) {
	build := func() (*types.Expression, error) {
		expr, err := parser.Compile(source)
		if err != nil {
			return nil, err
		}
		return inspect.Transform(ctx, expr, e.transformConfig())
	}

	if e.cache == nil {
		return build()
	}
	return e.cache.GetOrCompile(cache.Key(e.profile(), source), build)
}

// reportWriter returns the destination for inspect reports.
func (e *Evaluator) reportWriter() io.Writer {
	if e.opts.ReportWriter != nil {
		return e.opts.ReportWriter
	}
	return os.Stderr
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithCaching enables or disables script compilation caching.
// When enabled, a default LRU cache of 256 entries is created.
// To control the cache size use WithCacheSize; to supply your own cache use WithCache.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached scripts.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external script cache.
// The evaluator will use this cache regardless of the Caching flag.
func WithCache(c *cache.Cache) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cache = c
	}
}

// WithProfile sets the execution profile instrumentation is gated on.
func WithProfile(profile string) EvalOption {
	return func(opts *EvalOptions) {
		opts.Profile = profile
	}
}

// WithGate attaches an instrumentation gate, typically loaded from a
// pipelens.yaml file via inspect.LoadGate.
func WithGate(g *inspect.Gate) EvalOption {
	return func(opts *EvalOptions) {
		opts.Gate = g
	}
}

// WithReportWriter directs inspect reports to w instead of stderr.
func WithReportWriter(w io.Writer) EvalOption {
	return func(opts *EvalOptions) {
		opts.ReportWriter = w
	}
}

// WithColor enables or disables ANSI styling of report headers.
func WithColor(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Color = enabled
	}
}

// WithTimeout sets the evaluation timeout.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum recursion depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithCustomFunction registers a user-defined function with the evaluator.
// The function becomes callable by name, including as a pipe target.
//
// Example:
//
//	eval := evaluator.New(evaluator.WithCustomFunction("double", func(ctx context.Context, args ...interface{}) (interface{}, error) {
//	    return args[0].(float64) * 2, nil
//	}))
func WithCustomFunction(name string, fn CustomFunc) EvalOption {
	return func(opts *EvalOptions) {
		opts.CustomFunctions = append(opts.CustomFunctions, CustomFunctionDef{
			Name: name,
			Fn:   fn,
		})
	}
}

// convertNullToNil recursively converts types.Null to nil in result values.
// The internal types.Null representation is kept during evaluation to
// distinguish an explicit null from an absent value; external callers see nil.
func convertNullToNil(value interface{}) interface{} {
	switch v := value.(type) {
	case types.Null:
		return nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = convertNullToNil(item)
		}
		return result
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, item := range v {
			result[key] = convertNullToNil(item)
		}
		return result
	default:
		return value
	}
}
