package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/restaurant-management/internal/config"
	"github.com/iliyamo/restaurant-management/internal/report"
	"github.com/iliyamo/restaurant-management/internal/repository"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves the admin reports.
type ReportHandler struct {
	Reports  *repository.ReportRepo
	Business config.BusinessConfig
	Now      func() time.Time
}

func NewReportHandler(r *repository.ReportRepo, b config.BusinessConfig) *ReportHandler {
	return &ReportHandler{Reports: r, Business: b, Now: time.Now}
}

func (h *ReportHandler) RevenueByDay(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reports.RevenueByDay(ctx)
	if err != nil {
		return serverError(c, "Error fetching revenue report", err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *ReportHandler) PopularItems(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reports.PopularItems(ctx)
	if err != nil {
		return serverError(c, "Error fetching popular items", err)
	}
	return ok(c, http.StatusOK, out)
}

// BusiestTimes buckets reservations by the configured time slots.
func (h *ReportHandler) BusiestTimes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reports.BusiestTimes(ctx, h.Business.SlotFor)
	if err != nil {
		return serverError(c, "Error fetching busiest times", err)
	}
	return ok(c, http.StatusOK, out)
}

// collect runs the three report queries concurrently.
func (h *ReportHandler) collect(ctx context.Context) (report.Data, error) {
	d := report.Data{GeneratedAt: h.Now().UTC()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Revenue, err = h.Reports.RevenueByDay(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Popular, err = h.Reports.PopularItems(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Busiest, err = h.Reports.BusiestTimes(ctx, h.Business.SlotFor)
		return err
	})
	return d, g.Wait()
}

// Export downloads all reports as one xlsx workbook.
func (h *ReportHandler) Export(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()
	d, err := h.collect(ctx)
	if err != nil {
		return serverError(c, "Error fetching reports", err)
	}
	f, err := report.Build(d)
	if err != nil {
		return serverError(c, "Error building workbook", err)
	}
	defer f.Close()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return serverError(c, "Error writing workbook", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", report.FileName(d.GeneratedAt)))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
