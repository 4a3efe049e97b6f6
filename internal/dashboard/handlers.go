package dashboard

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/KaramelBytes/covidlens-cli/internal/analysis"
	"github.com/KaramelBytes/covidlens-cli/internal/chart"
	"github.com/KaramelBytes/covidlens-cli/internal/config"
	"github.com/KaramelBytes/covidlens-cli/internal/export"
	"github.com/KaramelBytes/covidlens-cli/internal/logging"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

// snapshot resolves ?date= through the loader. On failure it writes the
// error response and returns nil.
func (s *Server) snapshot(c *gin.Context) *report.Snapshot {
	raw := c.DefaultQuery("date", s.cfg.DefaultDate)
	date, err := report.ParseDate(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil
	}
	snap, err := s.loader.Load(c.Request.Context(), date)
	if err != nil {
		s.fail(c, err)
		return nil
	}
	return snap
}

// fail maps an error to a status and a JSON body naming its kind.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var mc *report.MissingColumnError
	var nf *analysis.CountryNotFoundError
	switch report.Kind(err) {
	case report.KindDataUnavailable:
		status = http.StatusNotFound
	case report.KindMalformedData:
		status = http.StatusBadGateway
	case report.KindCountryColumnMissing:
		status = http.StatusUnprocessableEntity
	default:
		switch {
		case errors.As(err, &nf):
			status = http.StatusNotFound
		case errors.As(err, &mc), errors.Is(err, analysis.ErrNoMetrics), errors.Is(err, chart.ErrEmptyData):
			status = http.StatusUnprocessableEntity
		}
	}
	body := gin.H{"error": err.Error()}
	if kind := report.Kind(err); kind != "" {
		body["kind"] = kind
	}
	if hint := report.Hint(err); hint != "" {
		body["hint"] = hint
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// intQuery reads a non-negative integer parameter, falling back to def
// when it is absent or unusable.
func (s *Server) intQuery(c *gin.Context, name string, def int) int {
	v := strings.TrimSpace(c.Query(name))
	if v == "" || strings.Trim(v, "0123456789") != "" {
		return def
	}
	// cast reads a leading zero as octal
	if v = strings.TrimLeft(v, "0"); v == "" {
		return 0
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) source(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":       snap.Key,
		"location":   snap.Location,
		"fetch_id":   snap.FetchID,
		"fetched_at": snap.FetchedAt.Format(time.RFC3339),
		"rows":       snap.Rows(),
		"columns":    snap.Header(),
		"index":      snap.Columns().Map(),
	})
}

func (s *Server) countries(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	r, err := analysis.ByCountry(snap)
	if err != nil {
		s.fail(c, err)
		return
	}
	if top := s.intQuery(c, "top", 0); top > 0 {
		r = r.Top(top)
	}
	c.JSON(http.StatusOK, gin.H{"date": snap.Key, "rows": r.Records()})
}

func (s *Server) countryList(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": snap.Key, "countries": analysis.Countries(snap)})
}

func (s *Server) provinces(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	country := c.DefaultQuery("country", s.cfg.BarCountry)
	r, err := analysis.ByProvince(snap, country)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": snap.Key, "country": country, "rows": r.Records()})
}

func (s *Server) extremes(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	metric, ok := report.ParseKey(c.DefaultQuery("metric", string(report.Deaths)))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown metric " + c.Query("metric")})
		return
	}
	r, err := analysis.ByCountry(snap)
	if err != nil {
		s.fail(c, err)
		return
	}
	hi, lo, err := analysis.Extremes(r, metric)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": snap.Key, "metric": metric, "max": hi.Records(), "min": lo.Records()})
}

func (s *Server) profile(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	p := analysis.ProfileSnapshot(snap, analysis.ProfileOptions{})
	if c.Query("format") == "markdown" {
		c.String(http.StatusOK, p.Markdown())
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": snap.Key, "rows": p.Rows, "columns": p.Cols, "index": p.Index, "notes": p.Warnings})
}

// sampleFrame draws the sample described by ?size=&seed=&drop=.
func (s *Server) sampleFrame(c *gin.Context) (*report.Snapshot, dataframe.DataFrame, bool) {
	snap := s.snapshot(c)
	if snap == nil {
		return nil, dataframe.DataFrame{}, false
	}
	size := s.intQuery(c, "size", s.cfg.SampleSize)
	seed := int64(s.intQuery(c, "seed", int(s.cfg.SampleSeed)))
	drop := c.DefaultQuery("drop", s.cfg.DropColumns)
	df := analysis.Sample(snap.Frame(), size, seed)
	df = analysis.DropColumns(df, analysis.ParseIndices(drop, analysis.DefaultDropPositions), snap.Header())
	return snap, df, true
}

func (s *Server) sample(c *gin.Context) {
	snap, df, ok := s.sampleFrame(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": snap.Key, "columns": df.Names(), "rows": analysis.FrameRecords(df)})
}

func (s *Server) sampleXLSX(c *gin.Context) {
	_, df, ok := s.sampleFrame(c)
	if !ok {
		return
	}
	data, err := export.WriteXLSX(df, s.cfg.ExportSheet)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Data(http.StatusOK, export.MIMEType, data)
}

func (s *Server) chart(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("file"), ".png")
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "charts are served as <kind>.png"})
		return
	}
	kind, err := chart.ParseKind(name)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	p := ChartParams(s.cfg)
	if v := c.Query("threshold"); v != "" {
		if f, err := cast.ToFloat64E(v); err == nil {
			p.DeathsThreshold = f
		}
	}
	if v, ok := c.GetQuery("country"); ok {
		p.Country = v
	}
	if v := c.Query("metric"); v != "" {
		if k, ok := report.ParseKey(v); ok {
			p.Metric = k
		}
	}
	if v := c.Query("countries"); v != "" {
		p.PieCountries = strings.Split(v, ",")
	}
	p.TopN = s.intQuery(c, "top", p.TopN)
	p.Bins = s.intQuery(c, "bins", p.Bins)
	png, err := chart.Render(snap, kind, p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ChartParams seeds chart parameters from the configuration.
func ChartParams(cfg *config.Global) chart.Params {
	p := chart.DefaultParams()
	p.Width, p.Height = cfg.ChartWidth, cfg.ChartHeight
	p.DeathsThreshold = cfg.LineDeathsThreshold
	p.Country = cfg.BarCountry
	p.PieCountries = cfg.PieCountries
	if cfg.TopN > 0 {
		p.TopN = cfg.TopN
	}
	if cfg.HistogramBins > 0 {
		p.Bins = cfg.HistogramBins
	}
	if cfg.BoxplotRows > 0 {
		p.BoxplotRows = cfg.BoxplotRows
	}
	return p
}
