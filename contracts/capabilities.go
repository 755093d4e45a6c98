package contracts

import "reflect"

// Builtin capability ids.
const (
	SapiInterface             = "SapiInterface"
	ExceptionHandlerInterface = "ExceptionHandlerInterface"
	RuleInterface             = "RuleInterface"
	ErrorAggregatorInterface  = "ErrorAggregatorInterface"
)

// Namespaces the PHP framework declares the contracts in.
const (
	applicationNamespace = `Limoncello\Core\Contracts\Application\`
	validationNamespace  = `Limoncello\Validation\Contracts\`
)

// Capability describes one builtin capability: the unit-level method names an
// implementing plugin type must provide, and the Go interface it mirrors.
// Qualified is the fully qualified name PHP plugins refer to it by. It is
// registered as an interface extending Name.
type Capability struct {
	Name      string
	Qualified string
	Methods   []string
	GoType    reflect.Type
}

// Capabilities returns the builtin capabilities in registration order.
func Capabilities() []Capability {
	return []Capability{
		{
			Name:      SapiInterface,
			Qualified: applicationNamespace + SapiInterface,
			Methods: []string{
				"getServer", "getRequestBody", "getParsedBody", "getQueryParams", "getCookies",
				"getFiles", "getHeaders", "getUri", "getMethod", "handleResponse",
			},
			GoType: reflect.TypeFor[SAPI](),
		},
		{
			Name:      ExceptionHandlerInterface,
			Qualified: applicationNamespace + ExceptionHandlerInterface,
			Methods:   []string{"handleException", "handleThrowable", "handleFatal"},
			GoType:    reflect.TypeFor[ExceptionHandler](),
		},
		{
			Name:      ErrorAggregatorInterface,
			Qualified: validationNamespace + ErrorAggregatorInterface,
			Methods:   []string{"add", "count", "clear"},
			GoType:    reflect.TypeFor[ErrorAggregator](),
		},
		{
			Name:      RuleInterface,
			Qualified: validationNamespace + RuleInterface,
			Methods: []string{
				"validate", "isStateless", "getParentRule", "setParentRule",
				"getParameterName", "setParameterName", "onFinish",
			},
			GoType: reflect.TypeFor[Rule](),
		},
	}
}
