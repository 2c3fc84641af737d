package commands

import (
	"fmt"
	"html/template"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"smartbiz-ml/internal/engine"
	"smartbiz-ml/internal/visuals"
)

var (
	reportFlags engine.DashboardRequest
	reportOut   string
	reportOpen  bool
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>SmartBiz Insights {{.Generated.Format "2006-01-02"}}</title>
<script type="module">
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs";
mermaid.initialize({ startOnLoad: true });
</script>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 960px; color: #222; }
section { margin-bottom: 2.5rem; }
.error { color: #a00; }
</style>
</head>
<body>
<h1>SmartBiz Insights</h1>
<p>Generated {{.Generated.Format "2006-01-02 15:04"}}</p>
{{range .Errors}}<p class="error">{{.}}</p>
{{end}}
{{range .Sections}}<section>
<h2>{{.Title}}</h2>
{{if .Chart}}<pre class="mermaid">{{.Chart}}</pre>{{end}}
<ul>{{range .Notes}}<li>{{.}}</li>{{end}}</ul>
</section>
{{end}}
</body>
</html>
`))

type reportSection struct {
	Title string
	Chart string
	Notes []string
}

type reportData struct {
	Generated time.Time
	Sections  []reportSection
	Errors    []string
}

// buildReport turns a dashboard into report sections. Missing panels are skipped.
func buildReport(d engine.Dashboard, now time.Time) reportData {
	out := reportData{Generated: now}
	if d.Sales != nil {
		out.Sections = append(out.Sections, reportSection{"Sales Forecast", visuals.Unfence(visuals.GenerateSalesChart(*d.Sales)), slices.Concat(d.Sales.Insights, d.Sales.Recommendations)})
	}
	if d.Demand != nil {
		out.Sections = append(out.Sections, reportSection{"Demand Forecast", visuals.Unfence(visuals.GenerateDemandChart(*d.Demand)), nil})
	}
	if d.Customers != nil {
		out.Sections = append(out.Sections, reportSection{"Customer Segments", visuals.Unfence(visuals.GenerateSegmentPie(*d.Customers)), nil})
	}
	if d.Inventory != nil {
		out.Sections = append(out.Sections, reportSection{"Inventory", visuals.Unfence(visuals.GenerateInventoryChart(*d.Inventory)), d.Inventory.Insights})
	}
	if d.Churn != nil {
		out.Sections = append(out.Sections, reportSection{"Churn Risk", visuals.Unfence(visuals.GenerateChurnChart(*d.Churn)), nil})
	}
	if d.Price != nil {
		note := fmt.Sprintf("%s: current %.2f, recommended %.2f", d.Price.ProductID, d.Price.CurrentPrice, d.Price.RecommendedPrice)
		out.Sections = append(out.Sections, reportSection{"Pricing", "", slices.Concat([]string{note}, d.Price.Recommendations)})
	}

	for _, m := range slices.Sorted(maps.Keys(d.Errors)) {
		out.Errors = append(out.Errors, fmt.Sprintf("%s unavailable: %s", m, d.Errors[m]))
	}
	return out
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write an HTML report with charts of every insight",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}

		path := reportOut
		if path == "" {
			path = filepath.Join(cfg.CacheDir, "report.html")
		}
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer file.Close()

		data := buildReport(rt.engine.Dashboard(cmd.Context(), reportFlags), time.Now())
		if err := reportTemplate.Execute(file, data); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		log.Info().Str("path", path).Int("sections", len(data.Sections)).Msg("Report written")
		fmt.Fprintln(cmd.OutOrStdout(), path)

		if reportOpen {
			// Keep stdout for the report path only.
			browser.Stdout = os.Stderr
			if err := browser.OpenFile(path); err != nil {
				log.Warn().Err(err).Msg("Could not open the report in a browser")
			}
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "report file (default <data>/cache/report.html)")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "open the report in the default browser")
	reportCmd.Flags().StringVarP(&reportFlags.ProductID, "product", "p", "", "product for the demand and price panels")
	reportCmd.Flags().IntVarP(&reportFlags.ForecastDays, "days", "d", 30, "demand forecast horizon in days")
	reportCmd.Flags().StringVar(&reportFlags.Period, "period", "daily", "sales forecast period: daily, weekly or monthly")
}
