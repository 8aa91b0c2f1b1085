package inject

import (
	"fmt"
	"reflect"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

// Tag is the struct tag marking a field as an injection point. Its value is
// the service identifier; an empty value derives one from the field name.
const Tag = "inject"

// Requirement describes one injection point of a type
type Requirement struct {
	Setter  string
	Service string
}

// Declarer lets a type list its injection points directly, skipping
// struct tag inspection
type Declarer interface {
	InjectionPoints() []Requirement
}

// Services is the registry dependencies are fetched from
type Services interface {
	Service(id string) (any, error)
}

// MissingSetterError is returned when an injection point has no setter
type MissingSetterError struct {
	Type   string
	Setter string
}

func (e *MissingSetterError) Error() string {
	return fmt.Sprintf("dependency injection requires method %s.%s to exist", e.Type, e.Setter)
}

// SetterSignatureError is returned when a setter cannot accept the dependency
type SetterSignatureError struct {
	Type    string
	Setter  string
	Service string
	Reason  string
}

func (e *SetterSignatureError) Error() string {
	return fmt.Sprintf("cannot inject %q through %s.%s: %s", e.Service, e.Type, e.Setter, e.Reason)
}

// Inspector discovers the requirements of a type
type Inspector func(t reflect.Type) []Requirement

// Option configures an Injector
type Option func(*Injector)

// WithInspector replaces the requirement discovery function
func WithInspector(inspect Inspector) Option {
	return func(i *Injector) {
		i.inspect = inspect
	}
}

// Injector performs setter injection from a service registry. Requirements
// are computed once per type and cached for the life of the injector.
type Injector struct {
	services Services
	inspect  Inspector
	cache    map[reflect.Type][]Requirement
}

// New creates an injector backed by services
func New(services Services, opts ...Option) *Injector {
	i := &Injector{
		services: services,
		inspect:  Inspect,
		cache:    make(map[reflect.Type][]Requirement),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// WithServices returns an injector that resolves from services and shares
// the requirement cache with i
func (i *Injector) WithServices(services Services) *Injector {
	return &Injector{services: services, inspect: i.inspect, cache: i.cache}
}

// Requirements returns the cached requirements of t, computing them on first use
func (i *Injector) Requirements(t reflect.Type) []Requirement {
	if reqs, ok := i.cache[t]; ok {
		return reqs
	}
	reqs := i.inspect(t)
	i.cache[t] = reqs
	return reqs
}

// Prepare fills every injection point of instance, which must be a non nil
// pointer. The first failure aborts and is returned unchanged from the
// registry or wrapped in a MissingSetterError / SetterSignatureError.
func (i *Injector) Prepare(instance any) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("dependency injection requires a non-nil pointer, got %T", instance)
	}

	typeName := typeString(v.Type())
	for _, req := range i.Requirements(v.Type()) {
		method := v.MethodByName(req.Setter)
		if !method.IsValid() {
			return &MissingSetterError{Type: typeName, Setter: req.Setter}
		}

		mt := method.Type()
		if mt.NumIn() != 1 {
			return &SetterSignatureError{Type: typeName, Setter: req.Setter, Service: req.Service,
				Reason: fmt.Sprintf("setter takes %d arguments, want 1", mt.NumIn())}
		}

		dep, err := i.services.Service(req.Service)
		if err != nil {
			return err
		}

		arg, err := argument(dep, mt.In(0))
		if err != nil {
			return &SetterSignatureError{Type: typeName, Setter: req.Setter, Service: req.Service, Reason: err.Error()}
		}

		out := method.Call([]reflect.Value{arg})
		if len(out) > 0 {
			if err, ok := out[len(out)-1].Interface().(error); ok && err != nil {
				return fmt.Errorf("%s.%s: %w", typeName, req.Setter, err)
			}
		}
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func argument(dep any, want reflect.Type) (reflect.Value, error) {
	if dep == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("nil service for parameter of type %s", want)
	}
	dv := reflect.ValueOf(dep)
	if !dv.Type().AssignableTo(want) {
		return reflect.Value{}, fmt.Errorf("service of type %s is not assignable to %s", dv.Type(), want)
	}
	return dv, nil
}

// Inspect is the default Inspector. Declarer implementations are asked for
// their points, otherwise tagged fields of the struct are used, including
// those of embedded structs. When an embedded field and an outer field share
// a setter, the shallower one wins, matching Go's method promotion.
func Inspect(t reflect.Type) []Requirement {
	if t.Implements(reflect.TypeOf((*Declarer)(nil)).Elem()) {
		return declared(t)
	}

	st := t
	for st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil
	}

	var found []point
	collect(st, 0, map[reflect.Type]bool{}, &found)

	best := make(map[string]int, len(found))
	var order []string
	for idx, p := range found {
		prev, seen := best[p.req.Setter]
		if !seen {
			order = append(order, p.req.Setter)
			best[p.req.Setter] = idx
			continue
		}
		if p.depth < found[prev].depth {
			best[p.req.Setter] = idx
		}
	}

	reqs := make([]Requirement, 0, len(order))
	for _, setter := range order {
		reqs = append(reqs, found[best[setter]].req)
	}
	return reqs
}

type point struct {
	req   Requirement
	depth int
}

// collect walks st in declaration order. Only embedded struct values are
// entered: a nil embedded pointer has no receiver for a promoted setter.
func collect(st reflect.Type, depth int, visiting map[reflect.Type]bool, out *[]point) {
	if visiting[st] {
		return
	}
	visiting[st] = true
	defer delete(visiting, st)

	for idx := 0; idx < st.NumField(); idx++ {
		field := st.Field(idx)
		if id, ok := field.Tag.Lookup(Tag); ok {
			if id == "" {
				id = HyphenCase(field.Name)
			}
			*out = append(*out, point{
				req:   Requirement{Setter: SetterName(field.Name), Service: id},
				depth: depth,
			})
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collect(field.Type, depth+1, visiting, out)
		}
	}
}

func declared(t reflect.Type) []Requirement {
	var instance reflect.Value
	if t.Kind() == reflect.Pointer {
		instance = reflect.New(t.Elem())
	} else {
		instance = reflect.Zero(t)
	}
	points := instance.Interface().(Declarer).InjectionPoints()
	out := make([]Requirement, len(points))
	copy(out, points)
	return out
}

var caseBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])|([A-Z])([A-Z][a-z])`)

// HyphenCase converts a field name to a lower case hyphenated identifier:
// templateEngine becomes template-engine and HTTPClient becomes http-client.
func HyphenCase(name string) string {
	split := caseBoundary.ReplaceAllString(name, "${1}${3}-${2}${4}")
	return slug.Make(split)
}

// SetterName returns the setter method for a field: templateEngine becomes SetTemplateEngine
func SetterName(field string) string {
	r, size := utf8.DecodeRuneInString(field)
	if r == utf8.RuneError {
		return "Set"
	}
	return "Set" + string(unicode.ToUpper(r)) + field[size:]
}

func typeString(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "(*" + typeString(t.Elem()) + ")"
	}
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
