// JSON format: kind detection and input context for application/json payloads.
package jsonformat

import (
	"context"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/payload"
	"github.com/ugorji/go/codec"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
	"io"
	"reflect"
	"strings"
)

// Name of the format in detection results.
const Name = "json"

// Format reads OData JSON payloads.
type Format struct {
	// JSON handle used for every decode.
	handle *codec.JsonHandle
}

// Returns a new JSON format.
func New() *Format {
	handle := &codec.JsonHandle{}
	handle.MapType = reflect.TypeOf(map[string]interface{}(nil))
	handle.SignedInteger = true
	return &Format{handle: handle}
}

func (format *Format) Name() string {
	return Name
}

// Decodes the whole of reader into a generic value.
func (format *Format) decode(reader io.Reader) (interface{}, error) {
	var decoded interface{}
	decoder := codec.NewDecoder(reader, format.handle)
	if err := decoder.Decode(&decoded); err != nil {
		return nil, xerrors.Errorf("json decode error: %w", err)
	}
	return decoded, nil
}

/*
DetectPayloadKinds decodes the body and classifies it. The context URL decides when
present; otherwise the shape of the top-level object does. A body which is not JSON
gets no opinion rather than an error, since another format may claim it.
*/
func (format *Format) DetectPayloadKinds(
	ctx context.Context, info *formats.MessageInfo, possible []payload.Kind,
) ([]payload.Kind, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoded, err := format.decode(info.TextStream())
	if err != nil {
		info.GetLogger().Debug("json detection found no json", zap.Error(err))
		return nil, nil
	}

	object, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, nil
	}

	var detected []payload.Kind
	if contextURL, ok := stringAnnotation(object, "context"); ok {
		detected = classifyContextURL(contextURL)
	} else {
		detected = classifyShape(object)
	}
	return intersect(detected, possible), nil
}

// Returns a new input context over info.
func (format *Format) CreateInputContext(
	ctx context.Context, info *formats.MessageInfo,
) (formats.InputContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &InputContext{format: format, info: info}, nil
}

/*
classifyContextURL maps a context URL to payload kinds:

• "$metadata" with no fragment is a service document.

• "#Collection($ref)" and "#$ref" are reference links.

• "/$entity" is a resource and "/$delta" a delta payload.

• "#Collection(...)" is a collection and "#Edm.*" a primitive property.

• A navigation path ending in a property could be a property or a resource set.

• Anything else is a resource set.
*/
func classifyContextURL(contextURL string) []payload.Kind {
	index := strings.Index(contextURL, "#")
	if index < 0 {
		if strings.HasSuffix(contextURL, "$metadata") {
			return []payload.Kind{payload.ServiceDocument}
		}
		return nil
	}
	fragment := contextURL[index+1:]

	switch {
	case fragment == "Collection($ref)":
		return []payload.Kind{payload.EntityReferenceLinks}
	case fragment == "$ref":
		return []payload.Kind{payload.EntityReferenceLink}
	case strings.HasSuffix(fragment, "/$entity"):
		return []payload.Kind{payload.Resource}
	case strings.HasSuffix(fragment, "/$delta"):
		return []payload.Kind{payload.Delta}
	case strings.HasPrefix(fragment, "Collection("):
		return []payload.Kind{payload.Collection}
	case strings.HasPrefix(fragment, "Edm."):
		return []payload.Kind{payload.Property}
	case strings.Contains(fragment, ")/"):
		return []payload.Kind{payload.ResourceSet, payload.Property}
	case strings.Contains(fragment, ".") && !strings.ContainsAny(fragment, "(/"):
		return []payload.Kind{payload.Property}
	}
	return []payload.Kind{payload.ResourceSet}
}

// classifyShape guesses payload kinds of an object without a context URL.
func classifyShape(object map[string]interface{}) []payload.Kind {
	properties := propertyNames(object)

	if len(properties) == 1 && properties[0] == "error" {
		if _, ok := object["error"].(map[string]interface{}); ok {
			return []payload.Kind{payload.Error}
		}
	}

	if value, ok := object["value"]; ok && len(properties) == 1 {
		items, isArray := value.([]interface{})
		if !isArray {
			return []payload.Kind{payload.Property}
		}
		return classifyItems(items)
	}

	if len(properties) == 0 {
		if _, ok := stringAnnotation(object, "id"); ok {
			return []payload.Kind{payload.EntityReferenceLink, payload.Resource}
		}
	}

	return []payload.Kind{payload.Resource, payload.Parameter}
}

func classifyItems(items []interface{}) []payload.Kind {
	if len(items) == 0 {
		return []payload.Kind{
			payload.ResourceSet, payload.EntityReferenceLinks, payload.Collection,
		}
	}

	allReferences := true
	allServiceElements := true
	anyObject := false
	for _, item := range items {
		object, ok := item.(map[string]interface{})
		if !ok {
			allReferences = false
			allServiceElements = false
			continue
		}
		anyObject = true
		properties := propertyNames(object)
		if _, hasID := stringAnnotation(object, "id"); !hasID || len(properties) > 0 {
			allReferences = false
		}
		_, hasName := object["name"]
		_, hasURL := object["url"]
		if !hasName || !hasURL {
			allServiceElements = false
		}
	}

	switch {
	case !anyObject:
		return []payload.Kind{payload.Collection}
	case allReferences:
		return []payload.Kind{payload.EntityReferenceLinks}
	case allServiceElements:
		return []payload.Kind{payload.ServiceDocument}
	}
	return []payload.Kind{payload.ResourceSet, payload.Collection}
}

// Keeps the kinds of detected which also appear in possible, in detected order.
func intersect(detected []payload.Kind, possible []payload.Kind) []payload.Kind {
	var kept []payload.Kind
	for _, kind := range detected {
		for _, allowed := range possible {
			if kind == allowed {
				kept = append(kept, kind)
				break
			}
		}
	}
	return kept
}
