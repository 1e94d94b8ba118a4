package imagegen

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"brandpost/internal/domain"
	"brandpost/internal/domain/jsoncfg"
)

const (
	DefaultHeadline = "Your headline here"
	DefaultSubhead  = "Supporting message"
	DefaultCTA      = "Learn more"

	layoutClause = "Layout: make the headline the dominant text, keep the subhead smaller beneath it, place the call to action as a clear button or banner, leave generous margins, and keep all text legible on mobile."
	safetyClause = "Safety: no NSFW, explicit, violent, or otherwise unsafe content; no real people's likenesses; no misleading claims."
)

// PromptInput bundles everything that shapes the image prompt for one post.
type PromptInput struct {
	Brand     *domain.BrandProfile
	Output    jsoncfg.GraphicOutput
	Direction jsoncfg.GraphicDirection
}

// BuildPrompt renders the image-generation prompt. Identical input always
// yields the same text, so a retried job sends the same instructions.
func BuildPrompt(in PromptInput) string {
	out := in.Output
	dir := in.Direction

	headline := firstNonEmpty(firstHeadline(out.HeadlineOptions), out.VisualConcept, DefaultHeadline)
	subhead := firstNonEmpty(out.Caption, dir.MainMessage, DefaultSubhead)
	cta := firstNonEmpty(dir.CTA, DefaultCTA)

	lines := []string{
		"Design a polished social media graphic for the brand described below.",
		fmt.Sprintf("Headline text: %q", headline),
		fmt.Sprintf("Subhead text: %q", subhead),
		fmt.Sprintf("Call to action: %q", cta),
	}

	if b := in.Brand; b != nil {
		lines = appendLine(lines, "Brand name: %s", b.Name)
		lines = appendLine(lines, "Niche: %s", b.Niche)
		lines = appendLine(lines, "Target audience: %s", b.Audience)
		lines = appendLine(lines, "Goals: %s", b.Goals)
		if colors := compact(b.Colors); len(colors) > 0 {
			lines = append(lines, "Brand colors: "+strings.Join(colors, ", "))
		}
		lines = appendLine(lines, "Brand voice: %s", b.Voice)
	}

	lines = appendLine(lines, "Visual concept: %s", out.VisualConcept)
	lines = appendLine(lines, "Image idea: %s", dir.ImageIdea)
	lines = appendLine(lines, "Aspect ratio: %s", dir.AspectRatio)

	if dir.UseBrandLogo {
		if in.Brand != nil && in.Brand.LogoURL != nil && strings.TrimSpace(*in.Brand.LogoURL) != "" {
			lines = append(lines, "Include the brand logo in a corner without covering the headline.")
		} else {
			lines = append(lines, "Reserve a clean corner area for the brand logo.")
		}
	}

	lines = append(lines, referenceLines("reference", dir.References)...)
	lines = append(lines, referenceLines("style sample", dir.StyleMimics)...)

	lines = append(lines, layoutClause, safetyClause)
	return strings.Join(lines, "\n")
}

func referenceLines(noun string, refs []jsoncfg.Reference) []string {
	var lines []string
	titleCaser := cases.Title(language.English)
	for _, ref := range refs {
		kind := strings.TrimSpace(ref.Kind)
		label := strings.TrimSpace(ref.Label)
		switch {
		case kind != "" && label != "":
			lines = append(lines, fmt.Sprintf("%s %s: %s", titleCaser.String(kind), noun, label))
		case kind != "":
			lines = append(lines, fmt.Sprintf("%s %s", titleCaser.String(kind), noun))
		case label != "":
			lines = append(lines, fmt.Sprintf("%s: %s", titleCaser.String(noun), label))
		}
	}
	return lines
}

func appendLine(lines []string, format, value string) []string {
	if v := strings.TrimSpace(value); v != "" {
		return append(lines, fmt.Sprintf(format, v))
	}
	return lines
}

func firstHeadline(options []string) string {
	for _, h := range options {
		if h = strings.TrimSpace(h); h != "" {
			return h
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
