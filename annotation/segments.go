package annotation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// segmentsDocument mirrors the part of an AMI segments file we read. The
// root element is namespaced (nite:root) so it is matched by position only.
type segmentsDocument struct {
	Segments []segmentElement `xml:"segment"`
}

type segmentElement struct {
	Start string `xml:"transcriber_start,attr"`
	End   string `xml:"transcriber_end,attr"`
}

// ParseSegments decodes one segments document and returns its intervals in
// document order. Bounds are converted from seconds to milliseconds.
//
// A segment whose start lies after its end is dropped and counted in
// inverted. Missing, non-numeric or negative bounds fail the document.
//
// AMI ships these files as ISO-8859-1, so non UTF-8 declarations are
// decoded through x/net's charset readers.
func ParseSegments(r io.Reader) (intervals []Interval, inverted int, err error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var doc segmentsDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, 0, fmt.Errorf("decode segments: %w", err)
	}

	intervals = make([]Interval, 0, len(doc.Segments))
	for i, seg := range doc.Segments {
		start, err := parseSeconds("transcriber_start", seg.Start)
		if err != nil {
			return nil, 0, fmt.Errorf("segment %d: %w", i, err)
		}
		end, err := parseSeconds("transcriber_end", seg.End)
		if err != nil {
			return nil, 0, fmt.Errorf("segment %d: %w", i, err)
		}
		iv := Interval{StartMs: start * 1000, EndMs: end * 1000}
		if err := iv.Validate(); errors.Is(err, ErrInverted) {
			inverted++
			continue
		} else if err != nil {
			return nil, 0, fmt.Errorf("segment %d: %w", i, err)
		}
		intervals = append(intervals, iv)
	}
	return intervals, inverted, nil
}

func parseSeconds(attr, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", attr)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", attr, raw)
	}
	return v, nil
}

// SpeakerFromName returns the speaker code of a record named
// `{meeting}.{speaker}.*`. Directory components are ignored.
func SpeakerFromName(name string) (string, error) {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("record name %q has no speaker field", name)
	}
	return parts[1], nil
}
