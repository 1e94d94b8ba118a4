package jsoncfg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ContentType selects the variant of the direction and output blobs.
type ContentType string

const (
	ContentTypeGraphic ContentType = "graphic"
	ContentTypeStory   ContentType = "story"
	ContentTypeText    ContentType = "text"
	ContentTypeVideo   ContentType = "video"
)

var ErrUnknownContentType = errors.New("unknown content type")

// ParseContentType normalizes a stored content type.
func ParseContentType(raw string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(raw)))
	switch ct {
	case ContentTypeGraphic, ContentTypeStory, ContentTypeText, ContentTypeVideo:
		return ct, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContentType, raw)
}

// Reference is a labeled image the user attached to a request. Only the kind
// and label reach the prompt.
type Reference struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

type GraphicDirection struct {
	MainMessage  string      `json:"main_message"`
	ImageIdea    string      `json:"image_idea"`
	AspectRatio  string      `json:"aspect_ratio"`
	UseBrandLogo bool        `json:"use_brand_logo"`
	CTA          string      `json:"cta"`
	References   []Reference `json:"references"`
	StyleMimics  []Reference `json:"style_mimics"`
}

type StoryDirection struct {
	MainMessage string `json:"main_message"`
	Frames      int    `json:"frames"`
}

type TextDirection struct {
	MainMessage string `json:"main_message"`
	Tone        string `json:"tone"`
}

type VideoDirection struct {
	MainMessage     string `json:"main_message"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Direction is the request blob decoded into exactly one variant.
type Direction struct {
	Type    ContentType
	Graphic *GraphicDirection
	Story   *StoryDirection
	Text    *TextDirection
	Video   *VideoDirection
}

type GraphicOutput struct {
	VisualConcept   string   `json:"visual_concept"`
	HeadlineOptions []string `json:"headline_options"`
	Caption         string   `json:"caption"`
	Hashtags        []string `json:"hashtags"`
}

type StoryOutput struct {
	Frames []string `json:"frames"`
}

type TextOutput struct {
	Body     string   `json:"body"`
	Hashtags []string `json:"hashtags"`
}

type VideoOutput struct {
	Script string `json:"script"`
	Hook   string `json:"hook"`
}

// Output is the generated content blob decoded into exactly one variant.
type Output struct {
	Type    ContentType
	Graphic *GraphicOutput
	Story   *StoryOutput
	Text    *TextOutput
	Video   *VideoOutput
}

var allowedAspectRatios = map[string]struct{}{
	"1:1":  {},
	"4:5":  {},
	"4:3":  {},
	"3:4":  {},
	"16:9": {},
	"9:16": {},
}

// Normalize trims free-text fields and drops empty references.
func (d *GraphicDirection) Normalize() {
	if d == nil {
		return
	}
	d.MainMessage = strings.TrimSpace(d.MainMessage)
	d.ImageIdea = strings.TrimSpace(d.ImageIdea)
	d.AspectRatio = strings.TrimSpace(d.AspectRatio)
	d.CTA = strings.TrimSpace(d.CTA)
	d.References = normalizeReferences(d.References)
	d.StyleMimics = normalizeReferences(d.StyleMimics)
}

// Validate rejects directions the image client cannot honor.
func (d GraphicDirection) Validate() error {
	if d.AspectRatio == "" {
		return nil
	}
	if _, ok := allowedAspectRatios[d.AspectRatio]; !ok {
		return fmt.Errorf("aspect_ratio must be one of 1:1, 4:5, 4:3, 3:4, 16:9, 9:16")
	}
	return nil
}

// Normalize trims the output text and drops blank headline options.
func (o *GraphicOutput) Normalize() {
	if o == nil {
		return
	}
	o.VisualConcept = strings.TrimSpace(o.VisualConcept)
	o.Caption = strings.TrimSpace(o.Caption)
	headlines := o.HeadlineOptions[:0]
	for _, h := range o.HeadlineOptions {
		if h = strings.TrimSpace(h); h != "" {
			headlines = append(headlines, h)
		}
	}
	o.HeadlineOptions = headlines
}

func normalizeReferences(refs []Reference) []Reference {
	out := refs[:0]
	for _, r := range refs {
		r.Kind = strings.TrimSpace(r.Kind)
		r.Label = strings.TrimSpace(r.Label)
		if r.Kind == "" && r.Label == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DecodeDirection decodes a request direction blob for the given content type.
func DecodeDirection(ct ContentType, raw []byte) (Direction, error) {
	d := Direction{Type: ct}
	var err error
	switch ct {
	case ContentTypeGraphic:
		var g GraphicDirection
		if err = decodeBlob(raw, &g); err == nil {
			g.Normalize()
			err = g.Validate()
		}
		d.Graphic = &g
	case ContentTypeStory:
		d.Story = &StoryDirection{}
		err = decodeBlob(raw, d.Story)
	case ContentTypeText:
		d.Text = &TextDirection{}
		err = decodeBlob(raw, d.Text)
	case ContentTypeVideo:
		d.Video = &VideoDirection{}
		err = decodeBlob(raw, d.Video)
	default:
		return Direction{}, fmt.Errorf("%w: %q", ErrUnknownContentType, ct)
	}
	if err != nil {
		return Direction{}, fmt.Errorf("decode %s direction: %w", ct, err)
	}
	return d, nil
}

// DecodeOutput decodes a generated output blob for the given content type.
func DecodeOutput(ct ContentType, raw []byte) (Output, error) {
	o := Output{Type: ct}
	var err error
	switch ct {
	case ContentTypeGraphic:
		o.Graphic = &GraphicOutput{}
		if err = decodeBlob(raw, o.Graphic); err == nil {
			o.Graphic.Normalize()
		}
	case ContentTypeStory:
		o.Story = &StoryOutput{}
		err = decodeBlob(raw, o.Story)
	case ContentTypeText:
		o.Text = &TextOutput{}
		err = decodeBlob(raw, o.Text)
	case ContentTypeVideo:
		o.Video = &VideoOutput{}
		err = decodeBlob(raw, o.Video)
	default:
		return Output{}, fmt.Errorf("%w: %q", ErrUnknownContentType, ct)
	}
	if err != nil {
		return Output{}, fmt.Errorf("decode %s output: %w", ct, err)
	}
	return o, nil
}

func decodeBlob(raw []byte, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
