package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"pmchat-backend/internal/app"
	projectUsecase "pmchat-backend/internal/project/usecase"
	taskdomain "pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document accepted by the seed command. Tasks refer to
// their project and stage by name.
type SeedFile struct {
	Owner     string                                 `yaml:"owner"`
	Projects  []projectUsecase.CreateProjectRequest  `yaml:"projects"`
	Employees []projectUsecase.CreateEmployeeRequest `yaml:"employees"`
	Tasks     []SeedTask                             `yaml:"tasks"`
}

type SeedTask struct {
	Title         string     `yaml:"title"`
	Description   string     `yaml:"description"`
	EstimatedTime float64    `yaml:"estimatedTime"`
	Effort        string     `yaml:"effort"`
	Assignee      string     `yaml:"assignee"`
	Status        string     `yaml:"status"`
	Priority      string     `yaml:"priority"`
	DueDate       *time.Time `yaml:"dueDate"`
	Project       string     `yaml:"project"`
	Stage         string     `yaml:"stage"`
}

// SeedSummary counts the documents a seed run created
type SeedSummary struct {
	Projects  int
	Employees int
	Tasks     int
}

var seedOwner string

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load projects, stages, employees and tasks from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		seed, err := ParseSeed(data)
		if err != nil {
			return err
		}
		if seedOwner != "" {
			seed.Owner = seedOwner
		}

		a, err := app.New(cmd.Context(), config.Load())
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer a.Close()

		summary, err := Seed(cmd.Context(), a, seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %d projects, %d employees, %d tasks\n",
			summary.Projects, summary.Employees, summary.Tasks)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOwner, "owner", "", "reporter email for seeded tasks (overrides the file)")
}

// ParseSeed decodes a seed document, rejecting unknown keys
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return &seed, nil
}

// Seed writes the seed document through the usecases so tasks are linked
// and progress is computed as they would be over HTTP
func Seed(ctx context.Context, a *app.App, seed *SeedFile) (*SeedSummary, error) {
	summary := &SeedSummary{}

	// project name -> id, and project name -> stage name -> id
	projectIDs := make(map[string]string)
	stageIDs := make(map[string]map[string]string)
	for _, req := range seed.Projects {
		p, err := a.Projects.CreateProject(ctx, req)
		if err != nil {
			return summary, fmt.Errorf("project %q: %w", req.Name, err)
		}
		projectIDs[p.Name] = p.ID
		stages := make(map[string]string, len(p.Stages))
		for _, s := range p.Stages {
			stages[s.Name] = s.ID
		}
		stageIDs[p.Name] = stages
		summary.Projects++
	}

	for _, req := range seed.Employees {
		if _, err := a.Employees.CreateEmployee(ctx, req); err != nil {
			return summary, fmt.Errorf("employee %q: %w", req.Email, err)
		}
		summary.Employees++
	}

	for _, st := range seed.Tasks {
		task := &taskdomain.Task{
			Title:         st.Title,
			Description:   st.Description,
			EstimatedTime: st.EstimatedTime,
			Effort:        taskdomain.Effort(st.Effort),
			Assignee:      st.Assignee,
			Status:        taskdomain.TaskStatus(st.Status),
			Priority:      taskdomain.Priority(st.Priority),
			DueDate:       st.DueDate,
		}
		if st.Project != "" {
			id, ok := projectIDs[st.Project]
			if !ok {
				return summary, fmt.Errorf("task %q: unknown project %q", st.Title, st.Project)
			}
			task.ProjectID = id
			if st.Stage != "" {
				stageID, ok := stageIDs[st.Project][st.Stage]
				if !ok {
					return summary, fmt.Errorf("task %q: project %q has no stage %q", st.Title, st.Project, st.Stage)
				}
				task.StageID = stageID
			}
		}
		if _, err := a.Tasks.CreateTask(ctx, task, seed.Owner); err != nil {
			return summary, fmt.Errorf("task %q: %w", st.Title, err)
		}
		summary.Tasks++
	}
	return summary, nil
}
