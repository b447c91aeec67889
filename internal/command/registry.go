package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/phrazzld/scry-assistant/internal/redact"
)

// TaskKey is the key that names the operation of a command object.
const TaskKey = "task"

// Signal tells the calling state that a command ends its work early.
type Signal string

// Signals
const (
	SignalNone               Signal = ""
	SignalMissingInformation Signal = "missing_information"
	SignalAbort              Signal = "abort"
)

// Effect is the outcome of one executed command.
type Effect struct {
	Command string
	// Message is a user-facing summary of what happened.
	Message string
	// Actions are the repository changes the command committed.
	Actions []history.Action
	Signal  Signal
}

// ActionSink receives every action right after it was committed.
type ActionSink interface {
	Commit(ctx context.Context, action history.Action)
}

// SinkFunc adapts a function to the ActionSink interface.
type SinkFunc func(ctx context.Context, action history.Action)

// Commit implements ActionSink.
func (f SinkFunc) Commit(ctx context.Context, action history.Action) {
	f(ctx, action)
}

// Definition describes one operation: its schema, its documentation for
// prompts and its handler.
type Definition[T any] struct {
	Name string
	// Doc explains the operation to the model.
	Doc string
	// Example is the JSON template shown to the model.
	Example string
	// Required and Optional list the payload keys besides TaskKey. A command
	// object must contain every required key and nothing outside both lists.
	Required []string
	Optional []string
	// Exclusive commands must be the only command of a payload.
	Exclusive bool
	// Check runs protocol checks that struct tags cannot express. It must
	// not touch the repository.
	Check func(ctx context.Context, payload T) error
	// Handle executes the command.
	Handle func(ctx context.Context, payload T) (Effect, error)
}

// Invocation is a validated command ready to run.
type Invocation struct {
	Name string
	run  func(ctx context.Context) (Effect, error)
}

type entry struct {
	name      string
	doc       string
	example   string
	keys      map[string]bool // key -> required
	exclusive bool
	bind      func(ctx context.Context, raw []byte) (func(context.Context) (Effect, error), error)
}

// Registry is a table of allowed operations. It is built once per engine
// and is safe for concurrent use after registration finished.
type Registry struct {
	validate *validator.Validate
	sink     ActionSink
	logger   *slog.Logger
	entries  map[string]*entry
	order    []string
}

// NewRegistry creates an empty registry that reports committed actions to sink.
func NewRegistry(sink ActionSink, logger *slog.Logger) *Registry {
	if sink == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("sink cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		validate: newValidator(),
		sink:     sink,
		logger:   logger.With(slog.String("component", "command_registry")),
		entries:  make(map[string]*entry),
	}
}

// Register adds an operation to the registry. Registering a name twice panics.
func Register[T any](r *Registry, def Definition[T]) {
	if _, exists := r.entries[def.Name]; exists {
		// ALLOW-PANIC: programming error during registry construction
		panic(fmt.Sprintf("command %q registered twice", def.Name))
	}
	if def.Handle == nil {
		// ALLOW-PANIC: programming error during registry construction
		panic(fmt.Sprintf("command %q has no handler", def.Name))
	}

	keys := make(map[string]bool, len(def.Required)+len(def.Optional))
	for _, k := range def.Required {
		keys[k] = true
	}
	for _, k := range def.Optional {
		keys[k] = false
	}

	r.entries[def.Name] = &entry{
		name:      def.Name,
		doc:       def.Doc,
		example:   def.Example,
		keys:      keys,
		exclusive: def.Exclusive,
		bind: func(ctx context.Context, raw []byte) (func(context.Context) (Effect, error), error) {
			var payload T
			if err := DecodeStrict(raw, &payload); err != nil {
				return nil, err
			}
			if err := r.validate.Struct(payload); err != nil {
				return nil, describeValidation(err)
			}
			if def.Check != nil {
				if err := def.Check(ctx, payload); err != nil {
					return nil, err
				}
			}
			return func(ctx context.Context) (Effect, error) {
				return def.Handle(ctx, payload)
			}, nil
		},
	}
	r.order = append(r.order, def.Name)
}

// Only returns a view of the registry restricted to the named operations.
// Unknown names panic.
func (r *Registry) Only(names ...string) *Registry {
	view := &Registry{
		validate: r.validate,
		sink:     r.sink,
		logger:   r.logger,
		entries:  make(map[string]*entry, len(names)),
	}
	for _, name := range names {
		e, ok := r.entries[name]
		if !ok {
			// ALLOW-PANIC: programming error during registry construction
			panic(fmt.Sprintf("command %q is not registered", name))
		}
		view.entries[name] = e
		view.order = append(view.order, name)
	}
	return view
}

// Names returns the registered operation names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Describe renders the documentation of every operation for a prompt.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		e := r.entries[name]
		fmt.Fprintf(&b, "* %s: %s\n", e.name, e.example)
		if e.doc != "" {
			fmt.Fprintf(&b, "%s\n", e.doc)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Parse validates a model reply and binds every command in it. It never
// calls a handler. Any violation returns a *ValidationError.
func (r *Registry) Parse(ctx context.Context, reply string) ([]Invocation, error) {
	objects, _, err := Extract(reply)
	if err != nil {
		return nil, err
	}

	invocations := make([]Invocation, 0, len(objects))
	for i, obj := range objects {
		inv, err := r.bind(ctx, i, obj)
		if err != nil {
			return nil, err
		}
		invocations = append(invocations, inv)
	}

	for i, inv := range invocations {
		if r.entries[inv.Name].exclusive && len(invocations) > 1 {
			return nil, invalid(i, inv.Name, fmt.Errorf("%w: %s may not be combined with other commands", ErrExclusive, inv.Name))
		}
	}

	return invocations, nil
}

func (r *Registry) bind(ctx context.Context, index int, obj json.RawMessage) (Invocation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return Invocation{}, invalid(index, "", ErrNotAnObject)
	}

	rawName, ok := fields[TaskKey]
	if !ok {
		return Invocation{}, invalid(index, "", fmt.Errorf("%w: missing key %q", ErrKeySet, TaskKey))
	}
	var name string
	if err := json.Unmarshal(rawName, &name); err != nil {
		return Invocation{}, invalid(index, "", fmt.Errorf("%w: key %q must be a string", ErrFieldType, TaskKey))
	}

	e, ok := r.entries[name]
	if !ok {
		return Invocation{}, invalid(index, name, fmt.Errorf("%w: %q (allowed: %s)", ErrUnknownCommand, name, strings.Join(r.order, ", ")))
	}

	delete(fields, TaskKey)
	if err := checkKeys(e.keys, fields); err != nil {
		return Invocation{}, invalid(index, name, err)
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return Invocation{}, invalid(index, name, fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	run, err := e.bind(ctx, payload)
	if err != nil {
		return Invocation{}, invalid(index, name, err)
	}

	return Invocation{Name: name, run: run}, nil
}

func checkKeys(schema map[string]bool, fields map[string]json.RawMessage) error {
	var missing, unexpected []string
	for key, required := range schema {
		if _, ok := fields[key]; required && !ok {
			missing = append(missing, key)
		}
	}
	for key := range fields {
		if _, ok := schema[key]; !ok {
			unexpected = append(unexpected, key)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}

	sort.Strings(missing)
	sort.Strings(unexpected)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing keys "+strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		parts = append(parts, "unexpected keys "+strings.Join(unexpected, ", "))
	}
	return fmt.Errorf("%w: %s", ErrKeySet, strings.Join(parts, "; "))
}

// Execute validates reply and runs its commands in order. Validation
// failures return before any command runs. Execution stops at the first
// failing command or at the first command that raises a signal; the effects
// of the commands that already ran are returned together with the error.
func (r *Registry) Execute(ctx context.Context, reply string) ([]Effect, error) {
	invocations, err := r.Parse(ctx, reply)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, invocations)
}

// Run executes already parsed invocations. See Execute.
func (r *Registry) Run(ctx context.Context, invocations []Invocation) ([]Effect, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	effects := make([]Effect, 0, len(invocations))
	for _, inv := range invocations {
		effect, err := inv.run(ctx)
		if err != nil {
			err = r.classify(inv.Name, effects, err)
			log.InfoContext(ctx, "command failed",
				slog.String("command", inv.Name),
				slog.Int("executed_before", len(effects)),
				redact.Attr(err))
			return effects, err
		}

		effect.Command = inv.Name
		for _, action := range effect.Actions {
			r.sink.Commit(ctx, action)
		}
		effects = append(effects, effect)

		log.DebugContext(ctx, "command executed",
			slog.String("command", inv.Name),
			slog.Int("actions", len(effect.Actions)))

		if effect.Signal != SignalNone {
			break
		}
	}
	return effects, nil
}

func (r *Registry) classify(name string, done []Effect, err error) error {
	executed := make([]string, len(done))
	for i, e := range done {
		executed[i] = e.Command
		if e.Message != "" {
			executed[i] = fmt.Sprintf("%s (%s)", e.Command, e.Message)
		}
	}

	var de *DomainError
	if errors.As(err, &de) {
		de.Command = name
		de.Executed = executed
		return de
	}

	if isDomainFailure(err) {
		return &DomainError{Command: name, Err: err, Executed: executed}
	}

	return &ResourceError{Command: name, Err: err, Executed: executed}
}

var payloadValidator = newValidator()

// Validate checks the struct tags of a decoded payload outside of a
// registry. Violations wrap ErrFieldValue.
func Validate(payload any) error {
	if err := payloadValidator.Struct(payload); err != nil {
		return describeValidation(err)
	}
	return nil
}

// newValidator returns a validator that knows the flag and card_state tags.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	mustRegister(v, "flag", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseFlag(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "card_state", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseCardState(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		// ALLOW-PANIC: static validator registration
		panic(err)
	}
}
