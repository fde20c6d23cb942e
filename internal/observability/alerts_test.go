package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

// exportedSeries lists what the API and worker processes publish.
var exportedSeries = map[string]bool{
	"harborline_http_requests_total":                  true,
	"harborline_http_request_duration_seconds_bucket": true,
	"harborline_capacity_rejections_total":            true,
	"harborline_dashboard_builds_total":               true,
	"harborline_jobs_total":                           true,
	"harborline_jobs_failures_total":                  true,
	"harborline_job_duration_seconds_bucket":          true,
	"harborline_unbalanced_cycles_total":              true,
}

var seriesPattern = regexp.MustCompile(`harborline_[a-z_]+`)

func loadAlertRules(t *testing.T) map[string]alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "shipping.yml"))
	require.NoError(t, err)

	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	require.Len(t, file.Groups, 1)
	require.Equal(t, "shipping", file.Groups[0].Name)

	rules := make(map[string]alertRule, len(file.Groups[0].Rules))
	for _, rule := range file.Groups[0].Rules {
		rules[rule.Alert] = rule
	}
	return rules
}

func TestShippingAlertRules(t *testing.T) {
	rules := loadAlertRules(t)

	expected := map[string]string{
		"HighErrorRate":          "critical",
		"HighLatency":            "warning",
		"CapacityRejectionSpike": "warning",
		"FlowRefreshFailing":     "warning",
	}
	require.Len(t, rules, len(expected))

	for name, severity := range expected {
		rule, ok := rules[name]
		require.True(t, ok, "rule %s missing", name)
		assert.Equal(t, severity, rule.Labels["severity"], name)
		assert.NotEmpty(t, rule.For, name)
		assert.NotEmpty(t, rule.Annotations["summary"], name)
		assert.NotEmpty(t, rule.Annotations["description"], name)
		assert.True(t, strings.HasPrefix(rule.Annotations["runbook"], "runbooks/shipping.md#"), name)
	}
}

func TestAlertRulesReferenceExportedSeries(t *testing.T) {
	for name, rule := range loadAlertRules(t) {
		series := seriesPattern.FindAllString(rule.Expr, -1)
		require.NotEmpty(t, series, "rule %s queries no harborline series", name)
		for _, s := range series {
			assert.True(t, exportedSeries[s], "rule %s queries unknown series %s", name, s)
		}
	}
	assert.Contains(t, loadAlertRules(t)["FlowRefreshFailing"].Expr, `job="shipping:flow_refresh"`)
}
