package jsonformat

import (
	"context"
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"golang.org/x/xerrors"
	"strings"
)

// InputContext reads one JSON payload. The body is decoded on first use.
type InputContext struct {
	format *Format
	info   *formats.MessageInfo

	decoded interface{}
	loaded  bool
	closed  bool
}

// Decodes the body once and checks the nesting depth quota.
func (inputContext *InputContext) load(kind payload.Kind) (interface{}, error) {
	if inputContext.closed {
		return nil, xerrors.New("json input context is closed")
	}
	if inputContext.loaded {
		return inputContext.decoded, nil
	}

	decoded, err := inputContext.format.decode(inputContext.info.TextStream())
	if err != nil {
		if odataerrors.IsCategory(err, odataerrors.CategoryQuota) {
			return nil, err
		}
		return nil, formats.Malformed(kind, err)
	}

	if inputContext.info.Settings != nil {
		maxDepth := inputContext.info.Settings.Quotas.MaxNestingDepth
		if maxDepth > 0 && depth(decoded) > maxDepth {
			return nil, odataerrors.NestingDepthExceeded.Newf(
				odataerrors.MsgNestingDepthExceeded, maxDepth,
			)
		}
	}

	inputContext.decoded = decoded
	inputContext.loaded = true
	return decoded, nil
}

// Loads the body and requires it to be an object.
func (inputContext *InputContext) loadObject(
	kind payload.Kind,
) (map[string]interface{}, error) {
	decoded, err := inputContext.load(kind)
	if err != nil {
		return nil, err
	}
	object, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, formats.Malformed(kind, xerrors.New("top-level value is not an object"))
	}
	return object, nil
}

func (inputContext *InputContext) CreateReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (formats.ItemReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case payload.Resource, payload.ResourceSet, payload.Delta,
		payload.Collection, payload.Parameter:
	default:
		return nil, formats.UnsupportedKind(Name, kind)
	}

	object, err := inputContext.loadObject(kind)
	if err != nil {
		return nil, err
	}

	var items []interface{}
	switch kind {
	case payload.Resource:
		resource, err := inputContext.toResource(object, options.ExpectedType)
		if err != nil {
			return nil, err
		}
		items = []interface{}{resource}
	case payload.ResourceSet, payload.Delta:
		items, err = inputContext.readResourceSet(kind, object, options.ExpectedType)
	case payload.Collection:
		items, err = readCollection(object)
	case payload.Parameter:
		items = readParameters(object)
	}
	if err != nil {
		return nil, err
	}
	return formats.NewSliceReader(items), nil
}

func (inputContext *InputContext) ReadValue(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case payload.Property, payload.Error, payload.ServiceDocument,
		payload.EntityReferenceLink, payload.EntityReferenceLinks:
	default:
		return nil, formats.UnsupportedKind(Name, kind)
	}

	object, err := inputContext.loadObject(kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case payload.Property:
		return inputContext.readProperty(object, options)
	case payload.Error:
		return readError(object)
	case payload.ServiceDocument:
		return inputContext.readServiceDocument(object)
	case payload.EntityReferenceLink:
		return inputContext.readEntityReferenceLink(object)
	default:
		return inputContext.readEntityReferenceLinks(object)
	}
}

// Close releases the decoded payload. The stream belongs to the message.
func (inputContext *InputContext) Close() error {
	inputContext.closed = true
	inputContext.decoded = nil
	return nil
}

/*
resolveType finds the model type for a payload type name. The client resolver from the
settings is asked first, then the model. A payload type which is not assignable to the
expected structured type is an UnexpectedPayload error.
*/
func (inputContext *InputContext) resolveType(
	typeName string, expectedType edm.Type,
) (string, error) {
	typeName = strings.TrimPrefix(typeName, "#")
	if typeName == "" {
		if expectedType != nil {
			return expectedType.FullName(), nil
		}
		return "", nil
	}
	if expectedType == nil {
		return typeName, nil
	}

	var resolved edm.Type
	if readerSettings := inputContext.info.Settings; readerSettings != nil &&
		readerSettings.ClientCustomTypeResolver != nil {
		resolved = readerSettings.ClientCustomTypeResolver(expectedType, typeName)
	}
	if resolved == nil && inputContext.info.Model != nil {
		resolved = inputContext.info.Model.FindType(typeName)
	}

	expectedStructured, expectedOK := expectedType.(*edm.StructuredType)
	resolvedStructured, resolvedOK := resolved.(*edm.StructuredType)
	if expectedOK && (!resolvedOK || !resolvedStructured.IsAssignableTo(expectedStructured)) {
		return "", odataerrors.UnexpectedPayload.Newf(
			odataerrors.MsgTypeMismatch, typeName, expectedType.FullName(),
		)
	}
	return typeName, nil
}

func (inputContext *InputContext) toResource(
	object map[string]interface{}, expectedType edm.Type,
) (*payload.ResourceValue, error) {
	rawType, _ := stringAnnotation(object, "type")
	typeName, err := inputContext.resolveType(rawType, expectedType)
	if err != nil {
		return nil, err
	}

	resource := &payload.ResourceValue{
		TypeName:    typeName,
		Properties:  make(map[string]interface{}),
		Annotations: customAnnotations(object, inputContext.info.AnnotationFilter()),
	}
	if id, ok := stringAnnotation(object, "id"); ok {
		resource.ID = inputContext.info.ResolveURL(id)
	}
	resource.ETag, _ = stringAnnotation(object, "etag")

	for _, name := range propertyNames(object) {
		resource.Properties[name] = object[name]
	}
	return resource, nil
}

func (inputContext *InputContext) readResourceSet(
	kind payload.Kind, object map[string]interface{}, expectedType edm.Type,
) ([]interface{}, error) {
	values, ok := object["value"].([]interface{})
	if !ok {
		return nil, formats.Malformed(kind, xerrors.New(`"value" is not an array`))
	}

	set := &payload.ResourceSetInfo{
		Count:       countAnnotation(object),
		Annotations: customAnnotations(object, inputContext.info.AnnotationFilter()),
	}
	set.Context, _ = stringAnnotation(object, "context")
	if nextLink, ok := stringAnnotation(object, "nextLink"); ok {
		set.NextLink = inputContext.info.ResolveURL(nextLink)
	}
	if deltaLink, ok := stringAnnotation(object, "deltaLink"); ok && kind == payload.Delta {
		set.DeltaLink = inputContext.info.ResolveURL(deltaLink)
	}

	items := []interface{}{set}
	for _, value := range values {
		entry, ok := value.(map[string]interface{})
		if !ok {
			return nil, formats.Malformed(kind, xerrors.New("resource set entry is not an object"))
		}

		if removed, ok := annotation(entry, "removed"); ok && kind == payload.Delta {
			deleted := &payload.DeletedResource{}
			if id, ok := stringAnnotation(entry, "id"); ok {
				deleted.ID = inputContext.info.ResolveURL(id)
			}
			if reason, ok := removed.(map[string]interface{}); ok {
				deleted.Reason, _ = reason["reason"].(string)
			}
			items = append(items, deleted)
			continue
		}

		resource, err := inputContext.toResource(entry, expectedType)
		if err != nil {
			return nil, err
		}
		items = append(items, resource)
	}
	return items, nil
}

func readCollection(object map[string]interface{}) ([]interface{}, error) {
	values, ok := object["value"].([]interface{})
	if !ok {
		return nil, formats.Malformed(
			payload.Collection, xerrors.New(`"value" is not an array`),
		)
	}

	start := &payload.CollectionStart{Count: countAnnotation(object)}
	start.Context, _ = stringAnnotation(object, "context")
	start.NextLink, _ = stringAnnotation(object, "nextLink")

	return append([]interface{}{start}, values...), nil
}

// Parameters are yielded in name order.
func readParameters(object map[string]interface{}) []interface{} {
	var items []interface{}
	for _, name := range propertyNames(object) {
		items = append(items, &payload.ParameterValue{Name: name, Value: object[name]})
	}
	return items
}

func (inputContext *InputContext) readProperty(
	object map[string]interface{}, options formats.ReadOptions,
) (*payload.PropertyValue, error) {
	property := &payload.PropertyValue{Name: options.Property}

	contextURL, _ := stringAnnotation(object, "context")
	if property.Name == "" {
		property.Name = propertyNameFromContext(contextURL)
	}

	rawType, _ := stringAnnotation(object, "type")
	property.TypeName = strings.TrimPrefix(rawType, "#")
	if property.TypeName == "" && options.ExpectedType != nil {
		property.TypeName = options.ExpectedType.FullName()
	}

	if value, ok := object["value"]; ok {
		property.Value = value
		return property, nil
	}

	// Complex property values are written inline.
	complexValue := make(map[string]interface{})
	for _, name := range propertyNames(object) {
		complexValue[name] = object[name]
	}
	property.Value = complexValue
	return property, nil
}

// Returns the last segment of the context URL fragment when it names a property.
func propertyNameFromContext(contextURL string) string {
	index := strings.Index(contextURL, "#")
	if index < 0 {
		return ""
	}
	fragment := contextURL[index+1:]
	slash := strings.LastIndex(fragment, "/")
	if slash < 0 {
		return ""
	}
	return fragment[slash+1:]
}

func readError(object map[string]interface{}) (*payload.ErrorPayload, error) {
	body, ok := object["error"].(map[string]interface{})
	if !ok {
		return nil, formats.Malformed(payload.Error, xerrors.New(`no "error" object`))
	}

	errorPayload := &payload.ErrorPayload{}
	errorPayload.Code, _ = body["code"].(string)
	errorPayload.Message, _ = body["message"].(string)
	errorPayload.Target, _ = body["target"].(string)
	errorPayload.InnerError, _ = body["innererror"].(map[string]interface{})

	details, _ := body["details"].([]interface{})
	for _, rawDetail := range details {
		detail, ok := rawDetail.(map[string]interface{})
		if !ok {
			continue
		}
		entry := payload.ErrorDetail{}
		entry.Code, _ = detail["code"].(string)
		entry.Message, _ = detail["message"].(string)
		entry.Target, _ = detail["target"].(string)
		errorPayload.Details = append(errorPayload.Details, entry)
	}
	return errorPayload, nil
}

func (inputContext *InputContext) readServiceDocument(
	object map[string]interface{},
) (*payload.ServiceDocumentValue, error) {
	values, ok := object["value"].([]interface{})
	if !ok {
		return nil, formats.Malformed(
			payload.ServiceDocument, xerrors.New(`"value" is not an array`),
		)
	}

	document := &payload.ServiceDocumentValue{}
	document.Context, _ = stringAnnotation(object, "context")

	for _, value := range values {
		raw, ok := value.(map[string]interface{})
		if !ok {
			return nil, formats.Malformed(
				payload.ServiceDocument, xerrors.New("service document entry is not an object"),
			)
		}
		element := payload.ServiceDocumentElement{Kind: "EntitySet"}
		element.Name, _ = raw["name"].(string)
		element.Title, _ = raw["title"].(string)
		if kind, ok := raw["kind"].(string); ok && kind != "" {
			element.Kind = kind
		}
		if rawURL, ok := raw["url"].(string); ok {
			element.URL = inputContext.info.ResolveURL(rawURL)
		}

		switch element.Kind {
		case "Singleton":
			document.Singletons = append(document.Singletons, element)
		case "FunctionImport":
			document.Functions = append(document.Functions, element)
		case "ServiceDocument":
			document.ServiceDocs = append(document.ServiceDocs, element)
		default:
			document.EntitySets = append(document.EntitySets, element)
		}
	}
	return document, nil
}

func (inputContext *InputContext) readEntityReferenceLink(
	object map[string]interface{},
) (*payload.ReferenceLink, error) {
	id, ok := stringAnnotation(object, "id")
	if !ok {
		return nil, formats.Malformed(
			payload.EntityReferenceLink, xerrors.New("no @odata.id"),
		)
	}
	return &payload.ReferenceLink{URL: inputContext.info.ResolveURL(id)}, nil
}

func (inputContext *InputContext) readEntityReferenceLinks(
	object map[string]interface{},
) (*payload.ReferenceLinks, error) {
	values, ok := object["value"].([]interface{})
	if !ok {
		return nil, formats.Malformed(
			payload.EntityReferenceLinks, xerrors.New(`"value" is not an array`),
		)
	}

	links := &payload.ReferenceLinks{Count: countAnnotation(object)}
	if nextLink, ok := stringAnnotation(object, "nextLink"); ok {
		links.NextLink = inputContext.info.ResolveURL(nextLink)
	}
	for _, value := range values {
		raw, ok := value.(map[string]interface{})
		if !ok {
			return nil, formats.Malformed(
				payload.EntityReferenceLinks, xerrors.New("reference link is not an object"),
			)
		}
		link, err := inputContext.readEntityReferenceLink(raw)
		if err != nil {
			return nil, err
		}
		links.Links = append(links.Links, *link)
	}
	return links, nil
}

// depth returns the nesting depth of a decoded value. Scalars have depth 0.
func depth(value interface{}) int {
	deepest := 0
	switch typed := value.(type) {
	case map[string]interface{}:
		for _, child := range typed {
			if childDepth := depth(child); childDepth > deepest {
				deepest = childDepth
			}
		}
		return deepest + 1
	case []interface{}:
		for _, child := range typed {
			if childDepth := depth(child); childDepth > deepest {
				deepest = childDepth
			}
		}
		return deepest + 1
	}
	return 0
}
