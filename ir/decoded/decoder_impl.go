package decoded

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/institutovitalis/pdfstamp/filters"
	"github.com/institutovitalis/pdfstamp/ir/raw"
)

// NewDecoder returns a Decoder backed by the given filter pipeline.
func NewDecoder(p *filters.Pipeline) Decoder {
	return &decoderImpl{pipeline: p}
}

type decoderImpl struct {
	pipeline *filters.Pipeline
}

func (d *decoderImpl) Decode(ctx context.Context, rawDoc *raw.Document) (*Document, error) {
	if err := d.inflateObjectStreams(ctx, rawDoc); err != nil {
		return nil, err
	}

	streams := make(map[raw.ObjectRef]Stream)

	type task struct {
		ref raw.ObjectRef
		obj *raw.Stream
	}
	var tasks []task
	for ref, obj := range rawDoc.Objects {
		if s, ok := obj.(*raw.Stream); ok {
			tasks = append(tasks, task{ref: ref, obj: s})
		}
	}
	if len(tasks) == 0 {
		return &Document{Raw: rawDoc, Streams: streams}, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	type result struct {
		ref    raw.ObjectRef
		stream Stream
		err    error
	}
	results := make(chan result, len(tasks))

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- result{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			data := t.obj.Data
			names, params := filters.ExtractFilters(t.obj.Dict, rawDoc)
			if d.pipeline != nil && len(names) > 0 {
				decodedData, err := d.pipeline.Decode(ctx, data, names, params)
				if err != nil {
					results <- result{err: fmt.Errorf("decode filters %v for %v: %w", names, t.ref, err)}
					return
				}
				data = decodedData
			}
			results <- result{ref: t.ref, stream: decodedStream{raw: t.obj, data: data, filters: names}}
		}(t)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		streams[res.ref] = res.stream
	}

	return &Document{Raw: rawDoc, Streams: streams}, nil
}

// inflateObjectStreams expands /Type /ObjStm containers so compressed
// objects appear in the flat table like any other. Existing entries win
// over inflated ones.
func (d *decoderImpl) inflateObjectStreams(ctx context.Context, doc *raw.Document) error {
	newObjects := make(map[raw.ObjectRef]raw.Object)
	for _, obj := range doc.Objects {
		stream, ok := obj.(*raw.Stream)
		if !ok {
			continue
		}
		if typ, _ := stream.Dict.NameValue("Type"); typ != "ObjStm" {
			continue
		}
		objects, err := d.decodeObjectStream(ctx, doc, stream)
		if err != nil {
			continue // a broken container loses only its own objects
		}
		for num, embedded := range objects {
			key := raw.ObjectRef{Num: num, Gen: 0}
			if _, exists := doc.Objects[key]; !exists {
				newObjects[key] = embedded
			}
		}
	}
	for ref, obj := range newObjects {
		doc.Objects[ref] = obj
	}
	return nil
}

func (d *decoderImpl) decodeObjectStream(ctx context.Context, doc *raw.Document, stream *raw.Stream) (map[int]raw.Object, error) {
	data := stream.Data
	names, params := filters.ExtractFilters(stream.Dict, doc)
	if d.pipeline != nil && len(names) > 0 {
		decodedData, err := d.pipeline.Decode(ctx, data, names, params)
		if err != nil {
			return nil, err
		}
		data = decodedData
	}

	count, ok := stream.Dict.IntValue("N")
	if !ok || count <= 0 {
		return nil, fmt.Errorf("invalid object stream count")
	}
	first, ok := stream.Dict.IntValue("First")
	if !ok || first < 0 || first > int64(len(data)) {
		return nil, fmt.Errorf("invalid object stream First")
	}

	header := data[:first]
	body := data[first:]
	nums := make([]int, 0, count)
	offsets := make([]int, 0, count)
	reader := bufio.NewReader(bytes.NewReader(header))
	for i := int64(0); i < count; i++ {
		var objNum, offset int
		if _, err := fmt.Fscan(reader, &objNum, &offset); err != nil {
			return nil, fmt.Errorf("parse objstm header: %w", err)
		}
		nums = append(nums, objNum)
		offsets = append(offsets, offset)
	}

	parsed := raw.ParseObjects(body, offsets)
	objects := make(map[int]raw.Object, len(parsed))
	for i, obj := range parsed {
		if _, isNull := obj.(raw.Null); isNull {
			continue
		}
		objects[nums[i]] = obj
	}
	return objects, nil
}

type decodedStream struct {
	raw     *raw.Stream
	data    []byte
	filters []string
}

func (s decodedStream) Dictionary() *raw.Dict { return s.raw.Dict }
func (s decodedStream) Data() []byte          { return s.data }
func (s decodedStream) Filters() []string     { return s.filters }
