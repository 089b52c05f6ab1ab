package models

// DefaultCurrency is the currency of a fresh profile.
const DefaultCurrency = "USD"

// CurrencySymbols maps the supported currency codes to display symbols.
// Amounts are never converted between currencies; the code only selects a symbol.
var CurrencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"MXN": "$",
	"COP": "$",
}

// CurrencySymbol returns the display symbol for code, falling back to "$".
func CurrencySymbol(code string) string {
	if symbol, ok := CurrencySymbols[code]; ok {
		return symbol
	}
	return "$"
}

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// DefaultTheme is the theme of a fresh profile.
const DefaultTheme = ThemeDark

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// User is the single local profile.
// Exactly one exists; it is created with defaults on first start and reset
// to defaults when all data is cleared.
type User struct {
	// Name is the display name. Empty until onboarding.
	Name string

	// Photo is an image data URL ("data:image/jpeg;base64,...").
	// Empty means no photo. It is kept in the blob store, not in the
	// relational schema, which only records whether a photo exists.
	Photo string

	// Currency is a currency code used to pick a display symbol.
	Currency string

	// Theme is the color scheme preference.
	Theme Theme
}

// DefaultUser returns the profile a fresh database starts with.
func DefaultUser() User {
	return User{
		Currency: DefaultCurrency,
		Theme:    DefaultTheme,
	}
}

// HasPhoto reports whether the profile carries a photo.
func (u User) HasPhoto() bool {
	return u.Photo != ""
}

// Normalized fills empty currency and unknown theme values with defaults.
func (u User) Normalized() User {
	if u.Currency == "" {
		u.Currency = DefaultCurrency
	}
	if !u.Theme.Valid() {
		u.Theme = DefaultTheme
	}
	return u
}
