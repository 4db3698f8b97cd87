package clarify

import (
	"reflect"
	"testing"

	"devforge/internal/types"
)

func TestProcessResponseFeatures(t *testing.T) {
	e := New()
	req := &types.Requirements{}
	got := e.ProcessResponse(req, "What specific features should the app have?", "user login, search; notifications")

	want := []types.Feature{
		{Name: "user login", Description: "user login"},
		{Name: "search", Description: "search"},
		{Name: "notifications", Description: "notifications"},
	}
	if !reflect.DeepEqual(got.Features, want) {
		t.Fatalf("features = %v, want %v", got.Features, want)
	}
	if len(req.Features) != 0 {
		t.Fatal("input requirements must not be mutated")
	}
}

func TestProcessResponseTechStack(t *testing.T) {
	e := New()
	cases := []struct {
		answer    string
		framework string
		backend   string
	}{
		{"I'd like React please", "react", ""},
		{"Vue would be nice", "vue", ""},
		{"Express on the server", "", "express"},
		{"Python all the way", "", "python"},
		// First match wins; React outranks Express.
		{"React frontend with Express", "react", ""},
	}
	for _, c := range cases {
		got := e.ProcessResponse(&types.Requirements{}, "Do you have a preferred technology stack?", c.answer)
		if got.Framework != c.framework || got.Backend != c.backend {
			t.Errorf("answer %q: framework=%q backend=%q, want %q/%q",
				c.answer, got.Framework, got.Backend, c.framework, c.backend)
		}
	}
}

func TestProcessResponseIntegrationsAccumulate(t *testing.T) {
	e := New()
	got := e.ProcessResponse(&types.Requirements{},
		"What systems or services should this integrate with?",
		"Stripe for payment, login via Google")

	want := []string{"Stripe for payment", "login via Google", "payment-processing", "authentication"}
	if !reflect.DeepEqual(got.Integrations, want) {
		t.Fatalf("integrations = %v, want %v", got.Integrations, want)
	}
}

func TestProcessResponseUsersScale(t *testing.T) {
	e := New()
	got := e.ProcessResponse(&types.Requirements{}, "How many users do you expect?", "several thousand with admin roles")
	if got.Users == nil || got.Users.Scale != "large" {
		t.Fatalf("users = %+v, want large scale", got.Users)
	}
	if !reflect.DeepEqual(got.Users.Roles, []string{"admin", "user"}) {
		t.Fatalf("roles = %v, want [admin user]", got.Users.Roles)
	}

	got = e.ProcessResponse(&types.Requirements{}, "How many users do you expect?", "just my team")
	if got.Users == nil || got.Users.Scale != "small" {
		t.Fatalf("users = %+v, want small scale", got.Users)
	}
}

func TestProcessResponseDashboardQuestionFeedsThreeFields(t *testing.T) {
	e := New()
	got := e.ProcessResponse(&types.Requirements{},
		"What data sources will the dashboard connect to?",
		"our internal SQL warehouse")

	if !got.DashboardRequired {
		t.Fatal("expected dashboardRequired")
	}
	if got.DataModel == nil || got.DataModel.Type != "sql" {
		t.Fatalf("dataModel = %+v, want sql", got.DataModel)
	}
	if !reflect.DeepEqual(got.Integrations, []string{"our internal SQL warehouse"}) {
		t.Fatalf("integrations = %v", got.Integrations)
	}
}

func TestProcessResponseUnknownQuestionIsNoop(t *testing.T) {
	e := New()
	req := &types.Requirements{Name: "x"}
	got := e.ProcessResponse(req, "Is this a question nobody asked?", "yes")
	if !reflect.DeepEqual(got, req) {
		t.Fatalf("got %+v, want unchanged copy", got)
	}
}

func TestFollowUpQuestions(t *testing.T) {
	e := New()
	req := &types.Requirements{
		Features:     []types.Feature{{Name: "payment flow"}},
		Integrations: []string{"external CRM"},
		Users:        &types.UserSpec{Scale: "large"},
		Deployment:   &types.DeploymentSpec{Platform: "serverless"},
	}
	got := e.FollowUpQuestions(req)
	want := []string{
		"Can you provide more details about your most important feature?",
		"Do you have API documentation for the external services?",
		"Do you need user analytics or reporting?",
		"Do you need serverless functions for specific operations?",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("followUps = %v, want %v", got, want)
	}

	if got := e.FollowUpQuestions(&types.Requirements{}); got != nil {
		t.Fatalf("followUps = %v, want none", got)
	}
}
