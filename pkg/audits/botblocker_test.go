package audits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanRobots(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name: "full disallow for ai crawler",
			body: "User-agent: GPTBot\nDisallow: /\n",
			expected: []string{
				"User-agent: gptbot Disallow: /",
			},
		},
		{
			name: "grouped agents share the disallow",
			body: "User-agent: GPTBot\nUser-agent: CCBot\nDisallow: /\n",
			expected: []string{
				"User-agent: gptbot Disallow: /",
				"User-agent: ccbot Disallow: /",
			},
		},
		{
			name:     "partial disallow is not a block",
			body:     "User-agent: GPTBot\nDisallow: /private\n",
			expected: nil,
		},
		{
			name:     "wildcard group is ignored",
			body:     "User-agent: *\nDisallow: /\n",
			expected: nil,
		},
		{
			name:     "non ai crawler is ignored",
			body:     "User-agent: Googlebot\nDisallow: /\n",
			expected: nil,
		},
		{
			name: "rule line closes the previous group",
			body: "User-agent: Googlebot\nDisallow: /search\nUser-agent: ClaudeBot\nDisallow: /\n",
			expected: []string{
				"User-agent: claudebot Disallow: /",
			},
		},
		{
			name:     "comments and blank lines are skipped",
			body:     "# block ai\n\nUser-agent: GPTBot\nCrawl-delay: 10\nDisallow: /tmp\n",
			expected: nil,
		},
		{
			name:     "empty body",
			body:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scanRobots(tt.body))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		report   BotBlockerReport
		expected Verdict
	}{
		{
			name: "forbidden crawler is blocked",
			report: BotBlockerReport{
				CrawlerProbe: Probe{StatusCode: 403, Bytes: 120},
				BrowserProbe: Probe{StatusCode: 200, Bytes: 48000},
			},
			expected: VerdictBlocked,
		},
		{
			name: "rate limited crawler is blocked",
			report: BotBlockerReport{
				CrawlerProbe: Probe{StatusCode: 429, Bytes: 0},
				BrowserProbe: Probe{StatusCode: 200, Bytes: 48000},
			},
			expected: VerdictBlocked,
		},
		{
			name: "crawler connection error is suspected",
			report: BotBlockerReport{
				CrawlerProbe: Probe{Error: "connection reset"},
				BrowserProbe: Probe{StatusCode: 200, Bytes: 48000},
			},
			expected: VerdictSuspected,
		},
		{
			name: "robots directive alone is suspected",
			report: BotBlockerReport{
				CrawlerProbe:     Probe{StatusCode: 200, Bytes: 48000},
				BrowserProbe:     Probe{StatusCode: 200, Bytes: 48000},
				RobotsDirectives: []string{"User-agent: gptbot Disallow: /"},
			},
			expected: VerdictSuspected,
		},
		{
			name: "thin crawler response is suspected",
			report: BotBlockerReport{
				CrawlerProbe: Probe{StatusCode: 200, Bytes: 900},
				BrowserProbe: Probe{StatusCode: 200, Bytes: 48000},
			},
			expected: VerdictSuspected,
		},
		{
			name: "equivalent responses are clear",
			report: BotBlockerReport{
				CrawlerProbe: Probe{StatusCode: 200, Bytes: 47100},
				BrowserProbe: Probe{StatusCode: 200, Bytes: 48000},
			},
			expected: VerdictClear,
		},
		{
			name: "site down for everyone is clear",
			report: BotBlockerReport{
				CrawlerProbe: Probe{StatusCode: 500, Bytes: 0},
				BrowserProbe: Probe{StatusCode: 500, Bytes: 0},
			},
			expected: VerdictClear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classify(&tt.report))
		})
	}
}
