// Reader settings, loadable from YAML and validated against the message direction.
package settings

import (
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
	"io"
	"io/ioutil"
	"net/url"
)

// Quotas bound the resources a single read may use. Zero means no limit.
type Quotas struct {
	// Maximum number of body bytes read from the message.
	MaxReceivedMessageSize int64 `yaml:"max_received_message_size"`
	// Maximum number of operations in a batch, counting change set members.
	MaxPartsPerBatch int `yaml:"max_parts_per_batch"`
	// Maximum nesting depth of structured payloads.
	MaxNestingDepth int `yaml:"max_nesting_depth"`
}

// TypeResolver lets clients map a type name found in a payload to a model type. It
// returns nil to fall back to the model lookup.
type TypeResolver func(expectedType edm.Type, typeName string) edm.Type

/*
Settings configures a message reader. Settings are resolved once, when the reader is
created, and not changed afterwards.

A YAML settings file looks like this:

	max_protocol_version: "4.01"
	base_uri: https://example.org/service/
	default_charset: utf-8
	annotation_filter: "*,-display.*"
	enable_message_stream_disposal: true
	quotas:
	  max_received_message_size: 1048576
	  max_parts_per_batch: 100
	  max_nesting_depth: 100
*/
type Settings struct {
	// Highest OData-Version the reader accepts.
	MaxProtocolVersion payload.Version `yaml:"max_protocol_version"`

	// Base for relative URLs in payloads. Must be absolute when set.
	BaseURI string `yaml:"base_uri"`

	// Charset used when the content type does not name one.
	DefaultCharset string `yaml:"default_charset"`

	// Instance annotations to keep, in odata.include-annotations syntax. When empty
	// the reader seeds it from the Preference-Applied header of responses.
	AnnotationFilter string `yaml:"annotation_filter"`

	// Whether the reader closes the message body when it is closed.
	EnableMessageStreamDisposal bool `yaml:"enable_message_stream_disposal"`

	Quotas Quotas `yaml:"quotas"`

	// Client side type resolution. Only valid when reading responses.
	ClientCustomTypeResolver TypeResolver `yaml:"-"`

	Logger *zap.Logger `yaml:"-"`
}

// Returns the default settings.
func Default() *Settings {
	return &Settings{
		MaxProtocolVersion:          payload.MaxVersion,
		DefaultCharset:              "utf-8",
		EnableMessageStreamDisposal: true,
		Quotas: Quotas{
			MaxPartsPerBatch: 100,
			MaxNestingDepth:  100,
		},
	}
}

// Loads settings from YAML. Keys which are not present keep their default values.
func Load(reader io.Reader) (*Settings, error) {
	content, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, xerrors.Errorf("error reading settings: %w", err)
	}

	loaded := Default()
	if err := yaml.UnmarshalStrict(content, loaded); err != nil {
		return nil, odataerrors.InvalidSettings.Wrap(err, "settings could not be parsed: %v", err)
	}
	return loaded, nil
}

// Returns a shallow copy, so a reader can fill in defaults without touching the
// caller's value.
func (settings *Settings) Clone() *Settings {
	clone := *settings
	return &clone
}

// Returns the logger, or a no-op logger when none is set.
func (settings *Settings) GetLogger() *zap.Logger {
	if settings.Logger == nil {
		return zap.NewNop()
	}
	return settings.Logger
}

/*
Validate checks the settings for a reader of the given direction.

• BaseURI must be absolute when set.

• ClientCustomTypeResolver can only be used when reading responses.

• Quotas must not be negative.

• MaxProtocolVersion must be a version this module supports.
*/
func (settings *Settings) Validate(isResponse bool) error {
	if settings.BaseURI != "" {
		baseURI, err := url.Parse(settings.BaseURI)
		if err != nil || !baseURI.IsAbs() {
			return odataerrors.InvalidSettings.Newf(
				odataerrors.MsgBaseURINotAbsolute, settings.BaseURI,
			)
		}
	}

	if !isResponse && settings.ClientCustomTypeResolver != nil {
		return odataerrors.InvalidSettings.Newf(
			odataerrors.MsgCustomTypeResolverRequest,
		)
	}

	if settings.Quotas.MaxReceivedMessageSize < 0 {
		return odataerrors.InvalidSettings.Newf(
			odataerrors.MsgNegativeQuota, "max received message size",
		)
	}
	if settings.Quotas.MaxPartsPerBatch < 0 {
		return odataerrors.InvalidSettings.Newf(
			odataerrors.MsgNegativeQuota, "max parts per batch",
		)
	}
	if settings.Quotas.MaxNestingDepth < 0 {
		return odataerrors.InvalidSettings.Newf(
			odataerrors.MsgNegativeQuota, "max nesting depth",
		)
	}

	if settings.MaxProtocolVersion < payload.V4 ||
		settings.MaxProtocolVersion > payload.MaxVersion {
		return odataerrors.InvalidSettings.Newf(
			odataerrors.MsgUnknownMaxVersion, settings.MaxProtocolVersion,
		)
	}
	return nil
}

// Returns the parsed base URI, or nil when none is set.
func (settings *Settings) ParsedBaseURI() *url.URL {
	if settings.BaseURI == "" {
		return nil
	}
	baseURI, err := url.Parse(settings.BaseURI)
	if err != nil {
		return nil
	}
	return baseURI
}
