package domain

// BrandProfile holds the per-account brand fields used in prompts.
type BrandProfile struct {
	AccountID string
	Name      string
	Niche     string
	Audience  string
	Goals     string
	Colors    []string
	Voice     string
	LogoURL   *string
}
