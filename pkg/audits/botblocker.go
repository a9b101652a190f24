// Package audits runs origin-level health checks against customer
// sites, currently a bot-blocker detector that probes how a site treats
// AI crawlers compared to regular browsers.
package audits

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Verdict classifies how a site treats crawler traffic
type Verdict string

const (
	// VerdictBlocked means the site actively refuses crawler requests
	VerdictBlocked Verdict = "blocked"

	// VerdictSuspected means signals point at crawler discrimination without proof
	VerdictSuspected Verdict = "suspected"

	// VerdictClear means crawlers and browsers get equivalent treatment
	VerdictClear Verdict = "clear"
)

const (
	crawlerUserAgent = "Mozilla/5.0 AppleWebKit/537.36 (KHTML, like Gecko); compatible; GPTBot/1.2; +https://openai.com/gptbot"
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// aiCrawlerTokens are robots.txt user-agent products whose blocking
// hides the site from AI surfaces.
var aiCrawlerTokens = []string{
	"gptbot",
	"oai-searchbot",
	"chatgpt-user",
	"ccbot",
	"claudebot",
	"google-extended",
	"perplexitybot",
	"bytespider",
	"amazonbot",
	"applebot-extended",
}

// Probe records one fetch of the site under a specific User-Agent
type Probe struct {
	UserAgent  string `json:"userAgent"`
	StatusCode int    `json:"statusCode,omitempty"`
	Bytes      int    `json:"bytes"`
	Error      string `json:"error,omitempty"`
}

// BotBlockerReport is the outcome of a bot-blocker check
type BotBlockerReport struct {
	Verdict          Verdict  `json:"verdict"`
	CrawlerProbe     Probe    `json:"crawlerProbe"`
	BrowserProbe     Probe    `json:"browserProbe"`
	RobotsDirectives []string `json:"robotsDirectives,omitempty"`
}

// Detector probes customer sites for crawler blocking
type Detector struct {
	httpClient *httpclient.Client
	logger     ectologger.Logger
}

// NewDetector creates a bot-blocker detector
func NewDetector(httpClient *httpclient.Client, logger ectologger.Logger) *Detector {
	return &Detector{
		httpClient: httpClient,
		logger:     logger,
	}
}

// CheckBotBlocker probes baseURL as a crawler and as a browser, scans
// robots.txt for AI-crawler disallow groups, and classifies the result.
func (d *Detector) CheckBotBlocker(ctx context.Context, baseURL string) (*BotBlockerReport, error) {
	ctx, span := tracing.StartSpan(ctx, "audits.Detector.CheckBotBlocker")
	defer span.End()

	report := &BotBlockerReport{
		CrawlerProbe: d.probe(ctx, baseURL, crawlerUserAgent),
		BrowserProbe: d.probe(ctx, baseURL, browserUserAgent),
	}

	if report.BrowserProbe.Error != "" {
		return nil, fmt.Errorf("site unreachable: %s", report.BrowserProbe.Error)
	}

	report.RobotsDirectives = d.fetchRobotsDirectives(ctx, baseURL)
	report.Verdict = classify(report)

	d.logger.WithContext(ctx).WithFields(map[string]any{
		"base_url":         baseURL,
		"verdict":          report.Verdict,
		"crawler_status":   report.CrawlerProbe.StatusCode,
		"browser_status":   report.BrowserProbe.StatusCode,
		"robots_directive": len(report.RobotsDirectives),
	}).Info("Completed bot-blocker check")

	return report, nil
}

func (d *Detector) probe(ctx context.Context, target, userAgent string) Probe {
	probe := Probe{UserAgent: userAgent}

	resp, err := d.httpClient.Get(ctx, target, map[string]string{"User-Agent": userAgent})
	if err != nil {
		probe.Error = err.Error()
		return probe
	}

	probe.StatusCode = resp.StatusCode
	probe.Bytes = len(resp.Body)
	return probe
}

func (d *Detector) fetchRobotsDirectives(ctx context.Context, baseURL string) []string {
	robotsURL := strings.TrimRight(baseURL, "/") + "/robots.txt"

	resp, err := d.httpClient.Get(ctx, robotsURL, map[string]string{"User-Agent": browserUserAgent})
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil
	}

	return scanRobots(string(resp.Body))
}

// scanRobots walks robots.txt groups and collects full-disallow rules
// aimed at known AI crawlers. Group boundaries follow the robots.txt
// convention: user-agent lines accumulate until the first rule line.
func scanRobots(body string) []string {
	var directives []string
	var agents []string
	inRules := false

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "user-agent":
			if inRules {
				agents = agents[:0]
				inRules = false
			}
			agents = append(agents, strings.ToLower(value))
		case "disallow":
			inRules = true
			if value != "/" {
				continue
			}
			for _, agent := range agents {
				if isAICrawler(agent) {
					directives = append(directives, fmt.Sprintf("User-agent: %s Disallow: /", agent))
				}
			}
		default:
			inRules = true
		}
	}

	return directives
}

func isAICrawler(agent string) bool {
	for _, token := range aiCrawlerTokens {
		if agent == token {
			return true
		}
	}
	return false
}

// classify turns probe and robots evidence into a verdict. Status-based
// refusal of the crawler while the browser succeeds is blocking; robots
// disallows and suspicious byte gaps are only suspicion.
func classify(report *BotBlockerReport) Verdict {
	browserOK := report.BrowserProbe.StatusCode >= 200 && report.BrowserProbe.StatusCode < 300

	if browserOK {
		switch report.CrawlerProbe.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return VerdictBlocked
		}
		if report.CrawlerProbe.Error != "" {
			return VerdictSuspected
		}
	}

	if len(report.RobotsDirectives) > 0 {
		return VerdictSuspected
	}

	// A crawler response under half the browser's size suggests a
	// challenge page or stripped content.
	if browserOK && report.BrowserProbe.Bytes > 0 && report.CrawlerProbe.Bytes*2 < report.BrowserProbe.Bytes {
		return VerdictSuspected
	}

	return VerdictClear
}
