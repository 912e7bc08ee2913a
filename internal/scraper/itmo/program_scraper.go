package itmo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/scraper"
)

// descriptionSelectors is the cascade tried for the program description,
// most specific first. The admission site has cycled through all of these
// class names over the years.
var descriptionSelectors = []string{
	".program-description",
	".description",
	".about-program",
	".program-info p",
	"h1 + p",
	".content p:first-of-type",
}

// Regex patterns for parsing program pages
var (
	admissionHeadingRegex = regexp.MustCompile(`(?i)требования|поступление|admission`)
	careerHeadingRegex    = regexp.MustCompile(`(?i)карьера|работа|трудоустройство|профессия|career`)
	digitsRegex           = regexp.MustCompile(`\d+`)
	boundedNumberRegex    = regexp.MustCompile(`\b\d+\b`)
)

// scrapeDedup collapses concurrent fetches of the same page URL, e.g. when
// a populate run overlaps a scheduled refresh.
var scrapeDedup = scraper.NewDeduper()

// ScrapePrograms fetches and parses every known program page concurrently.
// pageURLs overrides the page URL per program key; unlisted pages resolve
// against the admission site base URL. A page failure does not abort the
// others; an error is returned only when no page could be scraped.
func ScrapePrograms(ctx context.Context, client *scraper.Client, pageURLs map[string]string) ([]kb.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled before scraping programs: %w", err)
	}

	cache := scraper.NewURLCache(client, scraper.DomainAbit)

	results := make([]*kb.Program, len(Pages))
	errs := make([]error, len(Pages))

	g, gctx := errgroup.WithContext(ctx)
	for i, page := range Pages {
		g.Go(func() error {
			program, err := scrapeProgram(gctx, client, cache, page, pageURLs[page.Key])
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", page.Key, err)
				return nil
			}
			results[i] = program
			return nil
		})
	}
	_ = g.Wait()

	programs := make([]kb.Program, 0, len(Pages))
	for _, program := range results {
		if program != nil {
			programs = append(programs, *program)
		}
	}

	if len(programs) == 0 {
		return nil, fmt.Errorf("scrape program pages: %w", errors.Join(errs...))
	}
	return programs, nil
}

// ScrapeProgram fetches and parses a single program page. An empty pageURL
// resolves the page's default path against the admission site base URL,
// with automatic failover via URLCache.
func ScrapeProgram(ctx context.Context, client *scraper.Client, page ProgramPage, pageURL string) (*kb.Program, error) {
	cache := scraper.NewURLCache(client, scraper.DomainAbit)
	return scrapeProgram(ctx, client, cache, page, pageURL)
}

func scrapeProgram(ctx context.Context, client *scraper.Client, cache *scraper.URLCache, page ProgramPage, pageURL string) (*kb.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled before scraping %s: %w", page.Key, err)
	}

	resolved := pageURL == ""
	baseURL := ""
	if resolved {
		var err error
		baseURL, err = cache.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get working admission site URL: %w", err)
		}
		pageURL = baseURL + page.Path
	}

	doc, err := fetchDocument(ctx, client, pageURL)
	if err != nil && resolved && scraper.IsNetworkError(err) {
		// Re-probe the base URL once; the cached one may have gone stale
		cache.Clear()
		if newBase, cacheErr := cache.Get(ctx); cacheErr == nil && newBase != baseURL {
			doc, err = fetchDocument(ctx, client, newBase+page.Path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch program page: %w", err)
	}

	return parseProgramPage(doc, page), nil
}

// fetchDocument loads a page through the deduper so concurrent callers
// share one request per URL.
func fetchDocument(ctx context.Context, client *scraper.Client, pageURL string) (*goquery.Document, error) {
	result, err := scrapeDedup.Do(ctx, pageURL, func() (any, error) {
		return client.GetDocument(ctx, pageURL)
	})
	if err != nil {
		return nil, err
	}
	return result.(*goquery.Document), nil
}

// parseProgramPage extracts every catalog field from a program page,
// substituting defaults for sections the page does not expose.
func parseProgramPage(doc *goquery.Document, page ProgramPage) *kb.Program {
	return &kb.Program{
		Key:                   page.Key,
		Name:                  page.Name,
		Description:           extractDescription(doc),
		Duration:              extractDuration(doc),
		AdmissionRequirements: extractAdmissionRequirements(doc),
		CareerProspects:       extractCareerProspects(doc),
		Courses:               extractCourses(doc, page),
	}
}

func extractDescription(doc *goquery.Document) string {
	for _, selector := range descriptionSelectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}

	// Last resort: the first paragraph long enough to be a real description
	var fallback string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if utf8.RuneCountInString(text) > 100 {
			fallback = text
			return false
		}
		return true
	})
	if fallback != "" {
		return fallback
	}

	return defaultDescription
}

func extractDuration(doc *goquery.Document) string {
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" {
			continue
		}

		for _, keyword := range durationKeywords {
			if !strings.Contains(line, keyword) {
				continue
			}
			if number := digitsRegex.FindString(line); number != "" {
				return number + " года"
			}
			break
		}
	}

	return defaultDuration
}

func extractAdmissionRequirements(doc *goquery.Document) []string {
	requirements := collectSectionItems(doc, admissionHeadingRegex, 10)
	if len(requirements) == 0 {
		return defaultAdmissionRequirements()
	}
	return requirements
}

func extractCareerProspects(doc *goquery.Document) []string {
	prospects := collectSectionItems(doc, careerHeadingRegex, 5)
	if len(prospects) == 0 {
		return defaultCareerProspects()
	}
	return prospects
}

// collectSectionItems finds headings matching the pattern and gathers the
// list items that follow them: first the nearest sibling list, then any
// list inside the heading's parent. Items at or below minRunes are noise
// (icons, anchors) and are skipped; duplicates are dropped keeping first
// occurrence order.
func collectSectionItems(doc *goquery.Document, heading *regexp.Regexp, minRunes int) []string {
	var items []string
	seen := make(map[string]bool)

	doc.Find("h1, h2, h3, h4, h5, p, strong").Each(func(_ int, sel *goquery.Selection) {
		if !heading.MatchString(sel.Text()) {
			return
		}

		list := sel.NextAllFiltered("ul, ol").First()
		if list.Length() == 0 {
			list = sel.Parent().Find("ul, ol")
		}

		list.Find("li").Each(func(_ int, item *goquery.Selection) {
			text := strings.TrimSpace(item.Text())
			if utf8.RuneCountInString(text) <= minRunes || seen[text] {
				return
			}
			seen[text] = true
			items = append(items, text)
		})
	})

	return items
}

// extractCourses parses curriculum tables into catalog courses; pages
// without tables fall back to plain list parsing.
func extractCourses(doc *goquery.Document, page ProgramPage) []kb.Course {
	var courses []kb.Course

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
			if rowIdx == 0 {
				return // Header row
			}

			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}

			name := strings.TrimSpace(cells.Eq(0).Text())
			if utf8.RuneCountInString(name) < 3 {
				return
			}

			courses = append(courses, kb.Course{
				Name:        name,
				Description: "Курс по программе " + page.Key,
				Credits:     extractCredits(cells),
				Semester:    extractSemester(cells),
				IsMandatory: isMandatoryCourse(name, cells),
				Tags:        generateTags(name),
			})
		})
	})

	if len(courses) == 0 {
		courses = extractCoursesFromLists(doc, page)
	}

	return courses
}

// extractCredits returns the first standalone number in the 1..12 ECTS
// range found in any cell.
func extractCredits(cells *goquery.Selection) int {
	credits := defaultCredits

	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		for _, match := range boundedNumberRegex.FindAllString(cell.Text(), -1) {
			if value, err := strconv.Atoi(match); err == nil && value >= 1 && value <= 12 {
				credits = value
				return false
			}
		}
		return true
	})

	return credits
}

func extractSemester(cells *goquery.Selection) string {
	semester := defaultSemester

	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := strings.ToLower(cell.Text())
		if !strings.Contains(text, "семестр") && !strings.Contains(text, "semester") {
			return true
		}
		if number := digitsRegex.FindString(text); number != "" {
			semester = number + " семестр"
			return false
		}
		return true
	})

	return semester
}

func isMandatoryCourse(name string, cells *goquery.Selection) bool {
	var parts []string
	cells.Each(func(_ int, cell *goquery.Selection) {
		parts = append(parts, cell.Text())
	})
	combined := strings.ToLower(strings.Join(parts, " ") + " " + name)

	for _, keyword := range optionalKeywords {
		if strings.Contains(combined, keyword) {
			return false
		}
	}
	for _, keyword := range mandatoryKeywords {
		if strings.Contains(combined, keyword) {
			return true
		}
	}
	return true
}

func extractCoursesFromLists(doc *goquery.Document, page ProgramPage) []kb.Course {
	var courses []kb.Course

	doc.Find("ul li, ol li").Each(func(_ int, item *goquery.Selection) {
		text := strings.TrimSpace(item.Text())
		if utf8.RuneCountInString(text) <= 10 {
			return
		}

		lower := strings.ToLower(text)
		for _, prefix := range []string{"http", "www", "подробнее"} {
			if strings.HasPrefix(lower, prefix) {
				return
			}
		}

		courses = append(courses, kb.Course{
			Name:        text,
			Description: "Курс по программе " + page.Key,
			Credits:     defaultCredits,
			Semester:    defaultSemester,
			IsMandatory: true,
			Tags:        generateTags(text),
		})
	})

	return courses
}

// generateTags derives capability tags from a course name using the
// ordered keyword rules.
func generateTags(name string) []string {
	lower := strings.ToLower(name)

	var tags []string
	seen := make(map[string]bool)
	for _, rule := range tagRules {
		if !strings.Contains(lower, rule.keyword) {
			continue
		}
		for _, tag := range rule.tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	return tags
}
