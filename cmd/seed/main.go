package main

import (
	"context"
	"errors"
	"os"

	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configFile string
	email      string
	password   string
	name       string
	demo       bool
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "taskflow-seed",
		Short:        "Create the schema, an admin account and optional demo data",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.configFile, "config", "", "config file path")
	f.StringVar(&o.email, "email", "admin@example.com", "admin email; add it to super_admin_emails to make it a super admin")
	f.StringVar(&o.password, "password", os.Getenv("SEED_PASSWORD"), "admin password (or SEED_PASSWORD)")
	f.StringVar(&o.name, "name", "Admin", "admin display name")
	f.BoolVar(&o.demo, "demo", false, "also create a demo space with lists and tasks")
	return cmd
}

func run(ctx context.Context, o options) error {
	if o.password == "" {
		return errors.New("--password or SEED_PASSWORD is required")
	}
	cfg := config.Load(o.configFile)
	logger.Init(config.LogConfig{Level: "info", Format: "text", Console: true})
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := cfg.OpenGormDB()
	if err != nil {
		logger.Error("db connect failed", "err", err)
		return err
	}

	// Step 1: schema
	if err := service.Migrate(db); err != nil {
		logger.Error("migrate failed", "err", err)
		return err
	}

	// Step 2: admin account
	svc := service.New(db, cfg, nil)
	admin, err := ensureAccount(ctx, svc, o)
	if err != nil {
		logger.Error("admin account failed", "err", err)
		return err
	}
	logger.Info("admin ready", "uid", admin.ID, "email", admin.Email, "super_admin", admin.IsSuperAdmin)

	// Step 3: demo data
	if o.demo {
		sp, err := seedDemo(ctx, svc, admin.ID)
		if err != nil {
			logger.Error("demo seed failed", "err", err)
			return err
		}
		logger.Info("demo space ready", "space", sp.Name, "join_code", sp.JoinCode)
	}

	logger.Info("=== all done ===")
	return nil
}

func ensureAccount(ctx context.Context, svc *service.Services, o options) (*model.Profile, error) {
	p, err := svc.Auth.Register(ctx, model.RegisterRequest{Email: o.email, Password: o.password, DisplayName: o.name})
	if errors.Is(err, model.ErrEmailTaken) {
		return svc.Auth.Login(ctx, o.email, o.password)
	}
	return p, err
}

type demoTask struct {
	title    string
	list     int
	status   model.Status
	priority model.Priority
	dueIn    int
	subtasks []string
}

var demoLists = []model.CreateListRequest{
	{Name: "Campaigns", Color: "#6366f1"},
	{Name: "Content", Color: "#10b981"},
}

var demoTasks = []demoTask{
	{title: "Plan Q3 launch", list: 0, status: model.StatusInProgress, priority: model.PriorityHigh, dueIn: 5,
		subtasks: []string{"Pick launch date", "Book venue"}},
	{title: "Draft press release", list: 1, status: model.StatusTodo, priority: model.PriorityMedium, dueIn: 8},
	{title: "Update landing page", list: 1, status: model.StatusTodo, priority: model.PriorityUrgent, dueIn: 2},
	{title: "Review last quarter metrics", list: 0, status: model.StatusDone, priority: model.PriorityLow, dueIn: -3},
}

func seedDemo(ctx context.Context, svc *service.Services, adminID int64) (*model.Space, error) {
	gw := svc.As(adminID)
	sp, err := gw.CreateSpace(ctx, model.CreateSpaceRequest{Name: "Demo Team", Description: "Sample data", Theme: "indigo"})
	if err != nil {
		return nil, err
	}
	listIDs := make([]int64, len(demoLists))
	for i, req := range demoLists {
		l, err := svc.Spaces.CreateList(ctx, adminID, sp.ID, req)
		if err != nil {
			return nil, err
		}
		listIDs[i] = l.ID
	}

	today := model.Today()
	var first int64
	for i, d := range demoTasks {
		due := today.AddDays(d.dueIn)
		subs := make([]model.Subtask, len(d.subtasks))
		for j, s := range d.subtasks {
			subs[j] = model.Subtask{Title: s}
		}
		p := model.TaskPatch{
			SpaceID:    &sp.ID,
			ListID:     model.Some(listIDs[d.list]),
			Title:      &d.title,
			DueDate:    &due,
			Priority:   &d.priority,
			AssigneeID: model.Some(adminID),
			Subtasks:   &subs,
		}
		// the press release waits on the launch plan
		if i == 1 && first != 0 {
			p.BlockedByID = model.Some(first)
		}
		t, err := gw.UpsertTask(ctx, p)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = t.ID
		}
		if d.status != model.StatusTodo {
			if _, err := gw.SetStatus(ctx, t.ID, d.status); err != nil {
				return nil, err
			}
		}
	}
	return sp, nil
}
