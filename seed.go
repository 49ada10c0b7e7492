package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and a demo form, page and post",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, closeLog, err := setup()
		if err != nil {
			return err
		}
		defer closeLog()
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		out := cmd.OutOrStdout()

		section := func(s string) { fmt.Fprintf(out, "\n── %s ──\n", s) }

		section("Indexes")
		a.repos.ensureIndexes(ctx, log)
		fmt.Fprintln(out, "  ready")

		section("Admin")
		if err := a.auth.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPass); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		admin, err := a.repos.users.FindByEmail(ctx, cfg.AdminEmail)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s (%s)\n", admin.Email, admin.Role)

		section("Form")
		form, err := a.forms.Create(ctx, demoForm(), admin.ID)
		if err != nil {
			return fmt.Errorf("create form: %w", err)
		}
		fmt.Fprintf(out, "  %s  id=%s slug=%s\n", form.Name, form.ID, form.Slug)

		section("Content")
		editor := service.Actor{ID: admin.ID, Role: admin.Role}
		for _, it := range demoContent() {
			res, err := a.content.Create(ctx, editor, it.Kind, it)
			if err != nil {
				fmt.Fprintf(out, "  %-8s %-28s FAILED  %v\n", it.Kind, it.Slug, err)
				continue
			}
			fmt.Fprintf(out, "  %-8s %-28s id=%s\n", res.Item.Kind, res.Item.Slug, res.Item.ID)
			for _, st := range res.Stages {
				if st.Status == service.StageFailed {
					fmt.Fprintf(out, "           stage %s failed: %s\n", st.Stage, st.Error)
				}
			}
		}

		section("Sitemap")
		out.Write(a.sitemap.Build(ctx))
		return nil
	},
}

func demoForm() *models.Form {
	threshold := 40
	return &models.Form{
		Name:        "Request a demo",
		Description: "Book a walkthrough with the sales team",
		Type:        models.FormLeadGeneration,
		Status:      models.FormActive,
		Fields: []models.FieldDefinition{
			{Name: "name", Label: "Full name", Type: "text", Required: true},
			{Name: "email", Label: "Work email", Type: "email", Required: true, Indexed: true},
			{Name: "company", Label: "Company", Type: "text", Indexed: true},
			{Name: "budget", Label: "Budget (USD)", Type: "number"},
			{Name: "message", Label: "What are you looking for?", Type: "textarea"},
		},
		Settings: models.FormSettings{Honeypot: true, SuccessMessage: "Thanks, we will be in touch within one business day."},
		LeadScoring: models.LeadScoring{
			Enabled: true,
			Rules: []models.ScoringRule{
				{Field: "budget", Condition: models.ConditionGreaterThan, Value: 1000, Score: 30},
				{Field: "company", Condition: models.ConditionIsFilled, Score: 10},
				{Field: "email", Condition: models.ConditionContains, Value: "@", Score: 20},
				{Field: "message", Condition: models.ConditionContains, Value: "enterprise", Score: 25},
			},
			QualificationThreshold: &threshold,
		},
	}
}

func demoContent() []*models.ContentItem {
	now := time.Now().UTC()
	return []*models.ContentItem{
		{
			Kind:   models.KindPage,
			Title:  "Home",
			Slug:   "home",
			Status: models.StatusPublished,
			Layout: models.Layout{
				models.HeroBlock{Heading: "Ship marketing pages faster", Subheading: "Forms, leads and SEO in one place"},
				models.FeaturesBlock{Title: "Why teams switch", Features: []models.Feature{
					{Title: "Lead scoring", Description: "Rules you can read"},
					{Title: "SEO checks", Description: "Scores on every save"},
				}},
			},
			Meta: models.ContentMeta{Title: "OxiSite", Description: "Marketing site backend with forms, lead scoring and SEO analysis built in.", FocusKeyword: "marketing site"},
		},
		{
			Kind:    models.KindPost,
			Title:   "Scoring leads without a data team",
			Slug:    "scoring-leads",
			Status:  models.StatusPublished,
			Content: "<h2>Start with rules</h2><p>Lead scoring works best when every rule is something sales can explain.</p>",
			Meta:    models.ContentMeta{FocusKeyword: "lead scoring"},
		},
		{
			Kind:        models.KindPost,
			Title:       "Launch week recap",
			Slug:        "launch-week",
			Status:      models.StatusScheduled,
			PublishDate: &now,
			Content:     "<p>Everything we shipped this week.</p>",
		},
	}
}
