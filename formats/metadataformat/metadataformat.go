// Metadata format: CSDL metadata documents in their XML (application/xml) and JSON
// (application/json) representations.
package metadataformat

import (
	"bytes"
	"context"
	"encoding/xml"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/payload"
	"github.com/ugorji/go/codec"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
	"io"
	"io/ioutil"
	"reflect"
	"sort"
	"strings"
)

const Name = "metadata"

const edmxRoot = "Edmx"

type Format struct {
	handle *codec.JsonHandle
}

func New() *Format {
	handle := &codec.JsonHandle{}
	handle.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return &Format{handle: handle}
}

func (format *Format) Name() string {
	return Name
}

// Returns true when the body is CSDL XML rather than CSDL JSON. The media type decides
// when known, the first non-space byte otherwise.
func isXML(info *formats.MessageInfo, content []byte) bool {
	if info.MediaType != nil {
		switch info.MediaType.MimeType() {
		case mimetype.XML:
			return true
		case mimetype.JSON:
			return false
		}
	}
	trimmed := bytes.TrimLeft(content, " \t\r\n\ufeff")
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func (format *Format) DetectPayloadKinds(
	ctx context.Context, info *formats.MessageInfo, possible []payload.Kind,
) ([]payload.Kind, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allowed := false
	for _, kind := range possible {
		allowed = allowed || kind == payload.MetadataDocument
	}
	if !allowed {
		return nil, nil
	}

	content, err := ioutil.ReadAll(info.TextStream())
	if err != nil {
		return nil, err
	}

	var found bool
	representation := "json"
	if isXML(info, content) {
		representation = "xml"
		found = hasEdmxRoot(content)
	} else {
		found = format.hasVersion(content)
	}
	if !found {
		info.GetLogger().Debug(
			"metadata detection found no csdl document",
			zap.String("representation", representation),
		)
		return nil, nil
	}
	return []payload.Kind{payload.MetadataDocument}, nil
}

// Returns true if the first element of an XML document is edmx:Edmx.
func hasEdmxRoot(content []byte) bool {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	for {
		token, err := decoder.Token()
		if err != nil {
			return false
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local == edmxRoot
		}
	}
}

func (format *Format) decodeJSON(content []byte) (map[string]interface{}, error) {
	var document map[string]interface{}
	if err := codec.NewDecoderBytes(content, format.handle).Decode(&document); err != nil {
		return nil, xerrors.Errorf("csdl json decode error: %w", err)
	}
	return document, nil
}

func (format *Format) hasVersion(content []byte) bool {
	document, err := format.decodeJSON(content)
	if err != nil {
		return false
	}
	_, ok := document["$Version"]
	return ok
}

func (format *Format) CreateInputContext(
	ctx context.Context, info *formats.MessageInfo,
) (formats.InputContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &inputContext{format: format, info: info}, nil
}

type inputContext struct {
	format *Format
	info   *formats.MessageInfo
}

func (metadataContext *inputContext) CreateReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (formats.ItemReader, error) {
	return nil, formats.UnsupportedKind(Name, kind)
}

func (metadataContext *inputContext) ReadValue(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (interface{}, error) {
	if kind != payload.MetadataDocument {
		return nil, formats.UnsupportedKind(Name, kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := ioutil.ReadAll(metadataContext.info.TextStream())
	if err != nil {
		return nil, formats.Malformed(kind, err)
	}

	var document *payload.MetadataDocumentValue
	if isXML(metadataContext.info, content) {
		document, err = readXML(content)
	} else {
		document, err = metadataContext.format.readJSON(content)
	}
	if err != nil {
		return nil, formats.Malformed(kind, err)
	}
	document.Raw = content
	return document, nil
}

func (metadataContext *inputContext) Close() error {
	return nil
}

type edmxDocument struct {
	XMLName      xml.Name `xml:"Edmx"`
	Version      string   `xml:"Version,attr"`
	DataServices struct {
		Schemas []struct {
			Namespace        string `xml:"Namespace,attr"`
			EntityContainers []struct {
				Name string `xml:"Name,attr"`
			} `xml:"EntityContainer"`
		} `xml:"Schema"`
	} `xml:"DataServices"`
}

func readXML(content []byte) (*payload.MetadataDocumentValue, error) {
	parsed := edmxDocument{}
	decoder := xml.NewDecoder(bytes.NewReader(content))
	if err := decoder.Decode(&parsed); err != nil && err != io.EOF {
		return nil, xerrors.Errorf("csdl xml decode error: %w", err)
	}
	if parsed.XMLName.Local != edmxRoot {
		return nil, xerrors.Errorf("csdl xml root is %q", parsed.XMLName.Local)
	}

	document := &payload.MetadataDocumentValue{Version: parsed.Version}
	for _, schema := range parsed.DataServices.Schemas {
		document.Namespaces = append(document.Namespaces, schema.Namespace)
		for _, container := range schema.EntityContainers {
			document.EntityContainers = append(document.EntityContainers, container.Name)
		}
	}
	return document, nil
}

/*
readJSON reads a CSDL JSON document. Schemas are the top-level members whose name does
not start with "$" and whose value is an object; a schema's entity container is the
member with "$Kind": "EntityContainer". Namespaces are sorted since JSON objects carry
no order.
*/
func (format *Format) readJSON(content []byte) (*payload.MetadataDocumentValue, error) {
	decoded, err := format.decodeJSON(content)
	if err != nil {
		return nil, err
	}

	version, ok := decoded["$Version"].(string)
	if !ok {
		return nil, xerrors.New("csdl json document has no $Version")
	}

	document := &payload.MetadataDocumentValue{Version: version}
	for name, value := range decoded {
		schema, ok := value.(map[string]interface{})
		if strings.HasPrefix(name, "$") || !ok {
			continue
		}
		document.Namespaces = append(document.Namespaces, name)
		for elementName, element := range schema {
			members, ok := element.(map[string]interface{})
			if ok && members["$Kind"] == "EntityContainer" {
				document.EntityContainers = append(document.EntityContainers, elementName)
			}
		}
	}
	sort.Strings(document.Namespaces)
	sort.Strings(document.EntityContainers)
	return document, nil
}
