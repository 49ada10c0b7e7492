package handler

import (
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/service"
)

type DashboardHandler struct {
	formSvc    *service.FormService
	subSvc     *service.SubmissionService
	leadSvc    *service.LeadService
	contentSvc *service.ContentService
	log        *zap.Logger
}

func NewDashboardHandler(formSvc *service.FormService, subSvc *service.SubmissionService, leadSvc *service.LeadService, contentSvc *service.ContentService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{formSvc: formSvc, subSvc: subSvc, leadSvc: leadSvc, contentSvc: contentSvc, log: log}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	forms, err := h.formSvc.List(ctx, "")
	if err != nil {
		fail(w, h.log, err)
		return
	}

	var (
		mu        sync.Mutex
		formStats = make([]map[string]any, len(forms))
		byStatus  = map[models.SubmissionStatus]int{}
		byKind    = map[models.ContentKind]int{}
		leadCount int
		recent    []models.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, f := range forms {
		g.Go(func() error {
			count, err := h.subSvc.CountByForm(gctx, f.ID)
			if err != nil {
				return err
			}
			formStats[i] = map[string]any{
				"id":              f.ID,
				"name":            f.Name,
				"slug":            f.Slug,
				"status":          f.Status,
				"submissionCount": count,
				"fieldCount":      len(f.Fields),
				"createdAt":       f.CreatedAt,
			}
			return nil
		})
	}
	for _, st := range []models.SubmissionStatus{
		models.SubmissionNew, models.SubmissionProcessed, models.SubmissionConverted,
		models.SubmissionReviewed, models.SubmissionSpam, models.SubmissionRejected,
	} {
		g.Go(func() error {
			n, err := h.subSvc.CountByStatus(gctx, st)
			mu.Lock()
			byStatus[st] = n
			mu.Unlock()
			return err
		})
	}
	for _, kind := range []models.ContentKind{models.KindPage, models.KindPost, models.KindProduct} {
		g.Go(func() error {
			n, err := h.contentSvc.Count(gctx, kind)
			mu.Lock()
			byKind[kind] = n
			mu.Unlock()
			return err
		})
	}
	g.Go(func() (err error) {
		leadCount, err = h.leadSvc.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = h.subSvc.Recent(gctx, 10)
		return err
	})
	if err := g.Wait(); err != nil {
		fail(w, h.log, err)
		return
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formCount":           len(forms),
		"submissionCount":     total,
		"submissionsByStatus": byStatus,
		"leadCount":           leadCount,
		"content":             byKind,
		"forms":               formStats,
		"recentSubmissions":   recent,
	})
}
