package main

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/oxisite/internal/pipeline"
	"github.com/parisxmas/oxisite/internal/service"
)

var (
	firstNames = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Hank", "Ivy", "Jack", "Karen", "Leo", "Mona", "Nick", "Olivia", "Paul", "Quinn", "Rosa", "Sam", "Tina"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez", "Wilson", "Anderson", "Taylor", "Thomas", "Moore", "Jackson", "Martin", "Lee", "Harris", "Clark"}
	companies  = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Vandelay", "Stark", "Wayne", "Wonka", ""}
	messages   = []string{
		"Looking for an enterprise plan for our team",
		"Just browsing, send me pricing",
		"We need SSO and audit logs",
		"Can you do a demo next week?",
		"",
	}
)

var loadgen struct {
	form        string
	total       int
	concurrency int
	emails      int
	seed        int64
}

var loadgenCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Push synthetic submissions through the pipeline and report throughput",
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

		form, err := a.forms.Get(ctx, loadgen.form)
		if err != nil {
			return fmt.Errorf("form %q: %w", loadgen.form, err)
		}
		fmt.Fprintf(out, "Form:        %s (%s)\n", form.Name, form.ID)
		fmt.Fprintf(out, "Submissions: %d\n", loadgen.total)
		fmt.Fprintf(out, "Workers:     %d\n\n", loadgen.concurrency)

		// Inputs are generated up front so a seed reproduces the run.
		inputs := make([]pipeline.Input, loadgen.total)
		rng := rand.New(rand.NewSource(loadgen.seed))
		for i := range inputs {
			inputs[i] = syntheticInput(rng, form.ID, i, loadgen.emails)
		}

		var done, spam, qualified, failed atomic.Int64
		start := time.Now()
		stop := make(chan struct{})
		go func() {
			t := time.NewTicker(3 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-stop:
					return
				case <-t.C:
					n := done.Load()
					fmt.Fprintf(out, "  %7d / %d  (%5.1f%%)  %8.0f subs/s  %s\n",
						n, loadgen.total, float64(n)/float64(loadgen.total)*100,
						float64(n)/time.Since(start).Seconds(), time.Since(start).Round(time.Millisecond))
				}
			}
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(loadgen.concurrency)
		for _, in := range inputs {
			g.Go(func() error {
				res, err := a.submissions.Submit(gctx, in)
				done.Add(1)
				switch {
				case err != nil:
					failed.Add(1)
				case res.Spam:
					spam.Add(1)
				case res.Qualified:
					qualified.Add(1)
				}
				return nil
			})
		}
		g.Wait()
		close(stop)
		elapsed := time.Since(start)

		leads, _ := a.leads.Count(ctx)
		stats, _ := a.forms.Analytics(ctx, form.ID)

		fmt.Fprintln(out)
		fmt.Fprintln(out, "── Report ──")
		fmt.Fprintf(out, "  Submitted:   %d in %s (%.0f subs/s)\n", loadgen.total, elapsed.Round(time.Millisecond), float64(loadgen.total)/elapsed.Seconds())
		fmt.Fprintf(out, "  Spam:        %d\n", spam.Load())
		fmt.Fprintf(out, "  Qualified:   %d\n", qualified.Load())
		fmt.Fprintf(out, "  Failed:      %d\n", failed.Load())
		fmt.Fprintf(out, "  Leads:       %d\n", leads)
		fmt.Fprintf(out, "  Form count:  %d submissions\n", stats.Submissions)

		fmt.Fprintln(out, "\n── Search ──")
		for _, q := range []service.SearchRequest{
			{FormID: form.ID, Filters: map[string]service.FilterDescriptor{"company": {Value: "Acme"}}, Limit: 10},
			{FormID: form.ID, Filters: map[string]service.FilterDescriptor{"budget": {Min: 5000, Max: 20000}}, Limit: 10},
			{FormID: form.ID, TextQuery: "Smith", Limit: 10},
		} {
			t0 := time.Now()
			res, err := a.search.Search(ctx, q)
			if err != nil {
				fmt.Fprintf(out, "  ✗ %-10s %v\n", "error", err)
				continue
			}
			fmt.Fprintf(out, "  ✓ %-10s total=%-7d %s\n", res.Mode, res.Total, time.Since(t0).Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	f := loadgenCmd.Flags()
	f.StringVar(&loadgen.form, "form", "", "form id or slug (required)")
	f.IntVar(&loadgen.total, "n", 10_000, "number of submissions")
	f.IntVar(&loadgen.concurrency, "c", 16, "concurrent submissions")
	f.IntVar(&loadgen.emails, "emails", 2_000, "distinct submitter emails, so leads repeat")
	f.Int64Var(&loadgen.seed, "seed", 42, "random seed")
	loadgenCmd.MarkFlagRequired("form")
}

func syntheticInput(rng *rand.Rand, formID string, i, emails int) pipeline.Input {
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]
	k := rng.Intn(max(emails, 1))
	data := map[string]any{
		"name":    first + " " + last,
		"email":   fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), k),
		"company": companies[rng.Intn(len(companies))],
		"budget":  float64(500 + rng.Intn(50)*500),
		"message": messages[rng.Intn(len(messages))],
	}
	// roughly one in fifty trips the honeypot
	if rng.Intn(50) == 0 {
		data["_honeypot"] = "http://spam.example"
	}
	secs := 3 + rng.Float64()*120
	return pipeline.Input{
		FormRef:       formID,
		Data:          data,
		SubmitSeconds: &secs,
		PageURL:       "/demo",
		IPAddress:     fmt.Sprintf("10.%d.%d.%d", rng.Intn(256), rng.Intn(256), i%256),
		UserAgent:     "oxisite-loadgen/1.0",
	}
}
