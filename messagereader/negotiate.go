package messagereader

import (
	"context"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/message"
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
	"sort"
	"sync"
)

// Content type assumed for an empty body without a Content-Type header.
func defaultContentType(kind payload.Kind) string {
	switch kind {
	case payload.Value:
		return string(mimetype.TEXT)
	case payload.BinaryValue:
		return string(mimetype.BINARY)
	default:
		return string(mimetype.JSON)
	}
}

// Parses a Content-Type header, rejecting wildcards.
func parseContentType(header string) (*mimetype.MediaType, error) {
	mediaType, err := mimetype.Parse(header)
	if err != nil {
		return nil, odataerrors.ContentTypeInvalid.Wrap(
			err, odataerrors.MsgContentTypeInvalid, header,
		).With("content_type", header)
	}
	if mediaType.HasWildcard() {
		return nil, odataerrors.ContentTypeWildcard.Newf(
			odataerrors.MsgContentTypeWildcard, header,
		).With("content_type", header)
	}
	return mediaType, nil
}

// Called when the Content-Type header is missing. Only an empty body, by a
// Content-Length of 0 or no Content-Length at all, may go without one.
func (reader *Reader) verifyEmptyBody() error {
	length, ok := reader.message.ContentLength()
	if ok && length > 0 {
		return odataerrors.ContentTypeMissing.Newf(
			odataerrors.MsgContentTypeMissing, length,
		).With(message.HeaderContentLength, length)
	}
	return nil
}

// Resolves the charset of mediaType, falling back to Settings.DefaultCharset. Caller
// must hold the lock.
func (reader *Reader) setCharset(mediaType *mimetype.MediaType) error {
	label := mediaType.Charset()
	if label == "" {
		label = reader.settings.DefaultCharset
	}
	decoder, name, err := formats.ResolveCharset(label)
	if err != nil {
		return err
	}
	reader.mediaType = mediaType
	reader.charset = name
	reader.encoding = decoder
	return nil
}

/*
resolveContentType binds the format, payload kind and charset of the message from its
Content-Type header. kinds lists the acceptable payload kinds in order of preference;
the first kind with a media type the header matches wins.

An empty body without a Content-Type header is read as text/plain when kinds starts
with Value, application/octet-stream when it starts with BinaryValue, and
application/json otherwise.

The result is cached; later calls return it regardless of kinds.
*/
func (reader *Reader) resolveContentType(kinds []payload.Kind) (formats.Resolution, error) {
	if len(kinds) == 0 {
		return formats.Resolution{}, odataerrors.InvalidArgument.Newf(odataerrors.MsgNoKinds)
	}
	for _, kind := range kinds {
		if kind == payload.Unsupported {
			return formats.Resolution{}, odataerrors.InvalidArgument.Newf(
				odataerrors.MsgUnsupportedKind,
			)
		}
	}

	reader.lock.Lock()
	defer reader.lock.Unlock()

	if reader.resolution != nil {
		return *reader.resolution, nil
	}

	header := reader.message.ContentType()
	if header == "" {
		if err := reader.verifyEmptyBody(); err != nil {
			return formats.Resolution{}, err
		}
		header = defaultContentType(kinds[0])
		reader.logger.Debug("no content type on empty body", zap.String("assumed", header))
	}

	mediaType, err := parseContentType(header)
	if err != nil {
		return formats.Resolution{}, err
	}

	resolution, ok := reader.resolver.Resolve(mediaType, kinds)
	if !ok {
		return formats.Resolution{}, odataerrors.ContentTypeNotMatched.Newf(
			odataerrors.MsgContentTypeNotMatched, header, payload.JoinKinds(kinds),
		).With("content_type", header)
	}

	if err := reader.setCharset(mediaType); err != nil {
		return formats.Resolution{}, err
	}

	reader.resolution = &resolution
	reader.logger.Debug(
		"negotiated content type",
		zap.String("content_type", header),
		zap.String("format", resolution.Format.Name()),
		zap.Stringer("kind", resolution.Kind),
		zap.String("charset", reader.charset),
	)
	return resolution, nil
}

/*
detectPayloadKind lists the payload kinds the message may hold, sorted by kind.

The kinds the Content-Type header allows for the message direction are looked up
first. When there are none or one, they are returned as they are. Otherwise the body is
buffered and each format involved inspects it once. Only kinds found in the first step
are kept, and two formats reporting the same kind is a DetectionContractViolation.

With parallel set the formats run on their own goroutines. Whatever happens, buffering
is stopped and the reader is back to Fresh before returning.
*/
func (reader *Reader) detectPayloadKind(
	ctx context.Context, parallel bool,
) ([]payload.DetectionResult, error) {
	defer reader.guard.stopSniffing()

	header := reader.message.ContentType()
	if header == "" {
		if err := reader.verifyEmptyBody(); err != nil {
			return nil, err
		}
		return []payload.DetectionResult{}, nil
	}

	mediaType, err := parseContentType(header)
	if err != nil {
		return nil, err
	}

	isResponse := reader.message.IsResponse()
	candidates := reader.resolver.KindsFor(mediaType, func(kind payload.Kind) bool {
		return kind.SupportedIn(isResponse)
	})
	if len(candidates) <= 1 {
		reader.logger.Debug(
			"payload kind known from content type",
			zap.String("content_type", header),
			zap.Int("candidates", len(candidates)),
		)
		return append([]payload.DetectionResult{}, candidates...), nil
	}

	reader.lock.Lock()
	err = reader.setCharset(mediaType)
	reader.lock.Unlock()
	if err != nil {
		return nil, err
	}

	return reader.sniff(ctx, candidates, parallel)
}

// Candidate kinds of one format.
type detectionGroup struct {
	format formats.Format
	kinds  []payload.Kind
}

// Groups candidates by format, keeping the order formats first appear in.
func (reader *Reader) groupByFormat(
	candidates []payload.DetectionResult,
) ([]*detectionGroup, error) {
	var groups []*detectionGroup
	byName := make(map[string]*detectionGroup)

	for _, candidate := range candidates {
		group, ok := byName[candidate.Format]
		if !ok {
			format := reader.resolver.Format(candidate.Format)
			if format == nil {
				return nil, odataerrors.DetectionContractViolation.Newf(
					odataerrors.MsgFormatNotRegistered, candidate.Format,
				)
			}
			group = &detectionGroup{format: format}
			byName[candidate.Format] = group
			groups = append(groups, group)
		}
		group.kinds = append(group.kinds, candidate.Kind)
	}
	return groups, nil
}

// Collects the kinds reported by detectors. Safe for concurrent use.
type detectedKinds struct {
	lock    sync.Mutex
	allowed map[payload.Kind]bool
	results payload.DetectionResults
}

func (detected *detectedKinds) add(format string, kinds []payload.Kind) error {
	detected.lock.Lock()
	defer detected.lock.Unlock()

	for _, kind := range kinds {
		if !detected.allowed[kind] {
			continue
		}
		// A format repeating its own kind is not a conflict.
		if first, ok := detected.results.Get(kind); ok && first.Format == format {
			continue
		}
		err := detected.results.Add(payload.DetectionResult{Kind: kind, Format: format})
		if err != nil {
			first, _ := detected.results.Get(kind)
			return odataerrors.DetectionContractViolation.Wrap(
				err, odataerrors.MsgDetectedTwice, kind,
			).With("format", format).With("first_format", first.Format)
		}
	}
	return nil
}

// Candidate kinds no format claimed.
func (detected *detectedKinds) unclaimed() []payload.Kind {
	detected.lock.Lock()
	defer detected.lock.Unlock()

	var missing []payload.Kind
	for kind := range detected.allowed {
		if !detected.results.Has(kind) {
			missing = append(missing, kind)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func (detected *detectedKinds) sorted() []payload.DetectionResult {
	detected.lock.Lock()
	defer detected.lock.Unlock()
	return detected.results.Sorted()
}

// Runs a detector while catching panics to return as errors.
func safeDetect(
	ctx context.Context,
	format formats.Format,
	info *formats.MessageInfo,
	possible []payload.Kind,
) (kinds []payload.Kind, err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			err = xerrors.Errorf("panic during %v detection: %v", format.Name(), recovered)
		}
	}()

	return format.DetectPayloadKinds(ctx, info, possible)
}

func (reader *Reader) sniff(
	ctx context.Context, candidates []payload.DetectionResult, parallel bool,
) ([]payload.DetectionResult, error) {
	groups, err := reader.groupByFormat(candidates)
	if err != nil {
		return nil, err
	}

	reader.message.SetUseBuffering(true)
	defer reader.message.SetUseBuffering(false)

	stream, err := reader.message.GetStream(ctx)
	if err != nil {
		return nil, err
	}
	buffering := reader.message.BufferingStream()
	buffering.StartBuffering()
	defer buffering.StopBuffering()

	info := reader.GetOrCreateMessageInfo(stream, parallel)

	detected := &detectedKinds{allowed: make(map[payload.Kind]bool)}
	for _, candidate := range candidates {
		detected.allowed[candidate.Kind] = true
	}

	detect := func(ctx context.Context, group *detectionGroup) error {
		// Each detector reads the body from its start.
		detectInfo := *info
		detectInfo.Stream = buffering.NewReplay()

		kinds, err := safeDetect(ctx, group.format, &detectInfo, group.kinds)
		if err != nil {
			return err
		}
		reader.logger.Debug(
			"format detection finished",
			zap.String("format", group.format.Name()),
			zap.String("kinds", payload.JoinKinds(kinds)),
		)
		return detected.add(group.format.Name(), kinds)
	}

	if parallel {
		detectors, detectCtx := errgroup.WithContext(ctx)
		for _, group := range groups {
			group := group
			detectors.Go(func() error {
				return detect(detectCtx, group)
			})
		}
		err = detectors.Wait()
	} else {
		for _, group := range groups {
			if err = detect(ctx, group); err != nil {
				break
			}
		}
	}
	if err != nil {
		reader.logger.Debug("payload kind detection failed", zap.Error(err))
		return nil, err
	}

	if unclaimed := detected.unclaimed(); len(unclaimed) > 0 {
		reader.logger.Debug(
			"candidate kinds not detected", zap.String("kinds", payload.JoinKinds(unclaimed)),
		)
	}
	return detected.sorted(), nil
}
