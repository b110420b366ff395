// Package workflows defines the publishing and onboarding workflows once, against an
// Executor, and runs them either on a Temporal worker or in process.
package workflows

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/estatedesk/partnerflow/pkg/models"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

const (
	PropertyPublishing  = "propertyPublishing"
	ProjectPublishing   = "projectPublishing"
	PGHostelPublishing  = "pgHostelPublishing"
	DeveloperPublishing = "developerPublishing"
	PartnerOnboarding   = "partnerOnboarding"
	BusinessOnboarding  = "businessOnboarding"
)

// RunFunc is the body of a workflow, independent of how its activities are executed.
type RunFunc func(exec Executor, input models.WorkflowInput) (models.WorkflowResult, error)

type Definition struct {
	Name string
	Kind models.EntityKind
	Run  RunFunc
	// InputSchema is the JSON schema callers' input must satisfy.
	InputSchema map[string]any
}

// Workflow adapts the definition to a Temporal workflow function.
func (d Definition) Workflow() func(workflow.Context, models.WorkflowInput) (models.WorkflowResult, error) {
	return func(ctx workflow.Context, input models.WorkflowInput) (models.WorkflowResult, error) {
		return d.Run(newTemporalExecutor(ctx), input)
	}
}

// Reference returns the identifier a run of this definition is about: the draft for
// listings and the user for profiles. It is empty when the input lacks it.
func (d Definition) Reference(input models.WorkflowInput) string {
	key := "userId"
	if d.Kind.DraftKeyed() {
		key = "draftId"
	}

	switch value := input[key].(type) {
	case float64:
		return strconv.FormatInt(int64(value), 10)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case string:
		return value
	default:
		return ""
	}
}

type Registry struct {
	definitions map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// DefaultRegistry holds every publishing and onboarding workflow.
func DefaultRegistry() *Registry {
	registry := NewRegistry()

	for _, flow := range []publishing{propertyPublishing, projectPublishing, pgHostelPublishing, developerPublishing} {
		registry.mustAdd(Definition{
			Name:        publishingName(flow.kind),
			Kind:        flow.kind,
			Run:         flow.run,
			InputSchema: inputSchema(flow.dataKey, true),
		})
	}

	for _, flow := range []onboarding{partnerOnboarding, businessOnboarding} {
		registry.mustAdd(Definition{
			Name:        onboardingName(flow.kind),
			Kind:        flow.kind,
			Run:         flow.run,
			InputSchema: inputSchema(flow.dataKey, false),
		})
	}

	return registry
}

func publishingName(kind models.EntityKind) string {
	switch kind {
	case models.KindProject:
		return ProjectPublishing
	case models.KindPGHostel:
		return PGHostelPublishing
	case models.KindDeveloper:
		return DeveloperPublishing
	default:
		return PropertyPublishing
	}
}

func onboardingName(kind models.EntityKind) string {
	if kind == models.KindBusiness {
		return BusinessOnboarding
	}

	return PartnerOnboarding
}

func (r *Registry) Add(definition Definition) error {
	if definition.Name == "" || definition.Run == nil {
		return errors.New("workflow definition needs a name and a body")
	}

	if _, exists := r.definitions[definition.Name]; exists {
		return fmt.Errorf("workflow %q is already registered", definition.Name)
	}

	r.definitions[definition.Name] = definition

	return nil
}

func (r *Registry) mustAdd(definition Definition) {
	if err := r.Add(definition); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Definition, error) {
	definition, ok := r.definitions[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, name)
	}

	return definition, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// WorkflowRegistrar is satisfied by worker.Worker and the Temporal test environment.
type WorkflowRegistrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
}

type ActivityRegistrar interface {
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register registers every definition under its workflow name.
func (r *Registry) Register(registrar WorkflowRegistrar) {
	for _, name := range r.Names() {
		registrar.RegisterWorkflowWithOptions(r.definitions[name].Workflow(), workflow.RegisterOptions{Name: name})
	}
}

// RegisterActivities registers activity functions under their map keys.
func RegisterActivities(registrar ActivityRegistrar, functions map[string]any) {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		registrar.RegisterActivityWithOptions(functions[name], activity.RegisterOptions{Name: name})
	}
}
