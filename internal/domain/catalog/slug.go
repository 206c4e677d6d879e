package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultSlugMaxLength is the slug length limit used by GenerateSlug
const DefaultSlugMaxLength = 100

var (
	slugDisallowedChars = regexp.MustCompile(`[^A-Za-z0-9_\s-]`)
	slugSeparatorRuns   = regexp.MustCompile(`[\s_]+`)
	slugRepeatedHyphens = regexp.MustCompile(`-+`)
	slugNumericSuffix   = regexp.MustCompile(`^[1-9][0-9]*$`)
)

// cyrillicToLatin maps lowercase Cyrillic letters to their Latin spelling.
// Uppercase letters are handled by capitalizing the result.
var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
}

// Transliterate replaces Cyrillic letters with Latin ones, preserving case.
// Other characters are left untouched.
func Transliterate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		lower := unicode.ToLower(r)
		latin, ok := cyrillicToLatin[lower]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if lower != r && latin != "" {
			latin = strings.ToUpper(latin[:1]) + latin[1:]
		}
		b.WriteString(latin)
	}
	return b.String()
}

// foldDiacritics strips combining marks so that accented Latin letters keep their base letter
func foldDiacritics(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeSpaces turns every Unicode space (NBSP, thin space, ...) into an ASCII space
func normalizeSpaces(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, text)
}

// GenerateSlug builds a URL-safe slug from arbitrary text using DefaultSlugMaxLength
func GenerateSlug(text string) string {
	return GenerateSlugWithMaxLength(text, DefaultSlugMaxLength)
}

// GenerateSlugWithMaxLength builds a URL-safe slug no longer than maxLength.
// A non-positive maxLength disables truncation.
func GenerateSlugWithMaxLength(text string, maxLength int) string {
	slug := normalizeSpaces(foldDiacritics(Transliterate(text)))
	slug = strings.ToLower(slug)
	slug = slugDisallowedChars.ReplaceAllString(slug, "")
	slug = slugSeparatorRuns.ReplaceAllString(slug, "-")
	slug = slugRepeatedHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if maxLength > 0 && len(slug) > maxLength {
		slug = strings.TrimRight(slug[:maxLength], "-")
	}
	return slug
}

// EnsureUniqueSlug returns slug when it is not taken, otherwise slug-<n>
// for the smallest free n starting at 2.
func EnsureUniqueSlug(slug string, existing []string) string {
	taken := false
	occupied := make(map[int]struct{})
	prefix := slug + "-"

	for _, candidate := range existing {
		if candidate == slug {
			taken = true
			continue
		}
		suffix, ok := strings.CutPrefix(candidate, prefix)
		if !ok || !slugNumericSuffix.MatchString(suffix) {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 2 {
			continue
		}
		occupied[n] = struct{}{}
	}

	if !taken {
		return slug
	}

	n := 2
	for {
		if _, used := occupied[n]; !used {
			return slug + "-" + strconv.Itoa(n)
		}
		n++
	}
}
