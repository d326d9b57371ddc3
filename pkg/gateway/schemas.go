package gateway

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// methodSchema compiles a JSON Schema for one method's params from a
// property-name → type map and a required list.
func methodSchema(properties map[string]string, required []string) *gojsonschema.Schema {
	props := make(map[string]interface{}, len(properties))
	for name, typ := range properties {
		props[name] = map[string]interface{}{"type": typ}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		// Schemas are static literals below; a compile failure is a
		// programming error.
		panic(fmt.Sprintf("invalid method schema: %v", err))
	}
	return schema
}

// Param schemas per RPC method. additionalProperties is false everywhere so
// typos surface as invalid-params instead of being silently dropped.
var methodSchemas = map[string]*gojsonschema.Schema{
	MethodConverse: methodSchema(map[string]string{
		"conversationId": "string",
		"text":           "string",
	}, []string{"conversationId", "text"}),
	MethodTranscribe: methodSchema(map[string]string{
		"audio": "string",
	}, []string{"audio"}),
	MethodSpeak: methodSchema(map[string]string{
		"text": "string",
	}, []string{"text"}),
	MethodTurn: methodSchema(map[string]string{
		"conversationId": "string",
		"audio":          "string",
	}, []string{"conversationId", "audio"}),
	MethodReset: methodSchema(map[string]string{
		"conversationId": "string",
	}, []string{"conversationId"}),
	MethodStatus: methodSchema(map[string]string{}, nil),
}

// validateParams checks params against the method's schema and reports
// failures as invalid-params RPC errors.
func validateParams(method string, params map[string]interface{}) error {
	schema, ok := methodSchemas[method]
	if !ok {
		return nil
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return &RPCError{Code: InvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			details = append(details, verr.String())
		}
		return &RPCError{
			Code:    InvalidParams,
			Message: "invalid params: " + strings.Join(details, "; "),
		}
	}
	return nil
}

// stringParam returns the named string param, trimmed.
func stringParam(params map[string]interface{}, name string) string {
	value, _ := params[name].(string)
	return strings.TrimSpace(value)
}
