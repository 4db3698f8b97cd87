package clarify

import (
	"strings"

	"devforge/internal/types"
)

// fieldKey names a requirement field a clarification answer can populate.
// Every generated question carries a fixed, ordered list of field keys
// instead of being re-parsed for English keywords at response time.
type fieldKey string

const (
	fieldFeatures    fieldKey = "features"
	fieldTechStack   fieldKey = "tech-stack"
	fieldDesign      fieldKey = "design"
	fieldIntegration fieldKey = "integration"
	fieldData        fieldKey = "data"
	fieldUsers       fieldKey = "users"
	fieldDeployment  fieldKey = "deployment"
	fieldTimeline    fieldKey = "timeline"
	fieldPayment     fieldKey = "payment"
	fieldInventory   fieldKey = "inventory"
	fieldAuth        fieldKey = "auth"
	fieldDashboard   fieldKey = "dashboard"
	fieldCMS         fieldKey = "cms"
)

// questionFields binds each known question to the fields its answer feeds.
// A question may feed several fields; application order matches list order.
// Questions mapped to nil gather context only.
var questionFields = map[string][]fieldKey{
	"What specific features should the app have?":     {fieldFeatures},
	"Can you list the main functionalities you need?": nil,
	"What are the core user journeys?":                nil,

	"Do you have a preferred technology stack?":                         {fieldTechStack},
	"Are there any specific frameworks or libraries you'd like to use?": {fieldTechStack},
	"Any constraints on technologies we should use?":                    nil,

	"Do you have any design preferences or mockups?":   {fieldDesign},
	"What style or theme are you looking for?":         {fieldDesign},
	"Are there any brand guidelines we should follow?": nil,

	"What systems or services should this integrate with?":  {fieldIntegration},
	"Are there any third-party APIs we need to connect to?": {fieldIntegration},
	"Do you have authentication requirements?":              {fieldAuth},

	"What kind of data will the application handle?": {fieldData},
	"Do you have a preferred database solution?":     {fieldData},
	"Are there any data privacy requirements?":       {fieldData},

	"Who are the target users for this application?": {fieldUsers},
	"How many users do you expect?":                  {fieldUsers},
	"What are the user roles and permissions?":       nil,

	"Where do you plan to deploy this application?": {fieldDeployment},
	"Do you have any hosting preferences?":          {fieldDeployment},
	"Are there any scalability requirements?":       nil,

	"What is your timeline for this project?":  {fieldTimeline},
	"Are there any critical deadlines?":        {fieldTimeline},
	"Is this a phased rollout or all at once?": nil,

	"What payment methods do you need to support?": {fieldPayment},
	"Do you need inventory management?":            {fieldInventory},
	"Are there any tax or shipping requirements?":  nil,

	"Do you need user profiles and authentication?": {fieldAuth},
	"What social features are most important?":      {fieldFeatures},
	"Do you need content moderation capabilities?":  {fieldCMS},

	"What data sources will the dashboard connect to?": {fieldIntegration, fieldData, fieldDashboard},
	"What types of visualizations do you need?":        {fieldDashboard},
	"Do you need real-time data updates?":              {fieldData},

	"Do you need a content management system?": {fieldCMS},
	"Will there be multiple authors?":          nil,
	"Do you need commenting functionality?":    nil,

	"Can you provide more details about your most important feature?": nil,
	"Do you have API documentation for the external services?":        {fieldIntegration},
	"Do you need user analytics or reporting?":                        nil,
	"Do you need serverless functions for specific operations?":       nil,
}

// ProcessResponse applies one answer to a copy of req and returns the copy.
// Unknown questions leave the requirements untouched.
func (e *Engine) ProcessResponse(req *types.Requirements, question, answer string) *types.Requirements {
	updated := types.Requirements{}
	if req != nil {
		updated = *req
	}
	for _, key := range questionFields[question] {
		applyField(&updated, key, answer)
	}
	return &updated
}

func applyField(req *types.Requirements, key fieldKey, answer string) {
	switch key {
	case fieldFeatures:
		for _, name := range splitList(answer) {
			req.Features = append(req.Features, types.Feature{Name: name, Description: name})
		}
	case fieldTechStack:
		switch {
		case strings.Contains(answer, "React"):
			req.Framework = "react"
		case strings.Contains(answer, "Vue"):
			req.Framework = "vue"
		case strings.Contains(answer, "Angular"):
			req.Framework = "angular"
		case strings.Contains(answer, "Express"):
			req.Backend = "express"
		case strings.Contains(answer, "Node"):
			req.Backend = "node"
		case strings.Contains(answer, "Python"):
			req.Backend = "python"
		case strings.Contains(answer, "Django"):
			req.Backend = "django"
		case strings.Contains(answer, "Flask"):
			req.Backend = "flask"
		}
	case fieldDesign:
		d := types.DesignSpec{}
		if req.Design != nil {
			d = *req.Design
		}
		d.Preferences = answer
		switch {
		case strings.Contains(answer, "modern"):
			d.Style = "modern"
		case strings.Contains(answer, "minimal"):
			d.Style = "minimal"
		case strings.Contains(answer, "colorful"):
			d.Style = "colorful"
		case strings.Contains(answer, "professional"):
			d.Style = "professional"
		}
		req.Design = &d
	case fieldIntegration:
		req.Integrations = append(req.Integrations, splitList(answer)...)
		if strings.Contains(answer, "payment") {
			req.Integrations = append(req.Integrations, "payment-processing")
		}
		if strings.Contains(answer, "auth") || strings.Contains(answer, "login") {
			req.Integrations = append(req.Integrations, "authentication")
		}
	case fieldData:
		dm := types.DataModelSpec{}
		if req.DataModel != nil {
			dm = *req.DataModel
		}
		dm.Description = answer
		if strings.Contains(answer, "SQL") || strings.Contains(answer, "PostgreSQL") || strings.Contains(answer, "MySQL") {
			dm.Type = "sql"
		} else if strings.Contains(answer, "Mongo") || strings.Contains(answer, "NoSQL") {
			dm.Type = "nosql"
		}
		req.DataModel = &dm
	case fieldUsers:
		u := types.UserSpec{}
		if req.Users != nil {
			u = *req.Users
		}
		u.Description = answer
		if strings.Contains(answer, "admin") || strings.Contains(answer, "role") {
			u.Roles = []string{"admin", "user"}
		}
		if strings.Contains(answer, "thousand") || strings.Contains(answer, "many") {
			u.Scale = "large"
		} else {
			u.Scale = "small"
		}
		req.Users = &u
	case fieldDeployment:
		d := types.DeploymentSpec{}
		if req.Deployment != nil {
			d = *req.Deployment
		}
		d.Preferences = answer
		switch {
		case strings.Contains(answer, "AWS"), strings.Contains(answer, "Amazon"):
			d.Platform = "aws"
		case strings.Contains(answer, "Azure"), strings.Contains(answer, "Microsoft"):
			d.Platform = "azure"
		case strings.Contains(answer, "Google"), strings.Contains(answer, "GCP"):
			d.Platform = "gcp"
		case strings.Contains(answer, "Vercel"), strings.Contains(answer, "Netlify"):
			d.Platform = "serverless"
		}
		req.Deployment = &d
	case fieldTimeline:
		t := types.TimelineSpec{}
		if req.Timeline != nil {
			t = *req.Timeline
		}
		t.Description = answer
		switch {
		case strings.Contains(answer, "week"), strings.Contains(answer, "soon"):
			t.Urgency = "high"
		case strings.Contains(answer, "month"), strings.Contains(answer, "quarter"):
			t.Urgency = "medium"
		default:
			t.Urgency = "low"
		}
		req.Timeline = &t
	case fieldPayment:
		req.Payment = &types.PaymentSpec{Methods: splitList(answer)}
	case fieldInventory:
		req.InventoryRequired = true
	case fieldAuth:
		req.AuthRequired = true
	case fieldDashboard:
		req.DashboardRequired = true
	case fieldCMS:
		req.CMSRequired = true
	}
}

// FollowUpQuestions inspects updated requirements for conditions that
// warrant a second round of questions.
func (e *Engine) FollowUpQuestions(req *types.Requirements) []string {
	if req == nil {
		return nil
	}
	var followUps []string

	for _, f := range req.Features {
		if strings.Contains(f.Name, "user") || strings.Contains(f.Name, "payment") ||
			strings.Contains(f.Name, "search") || strings.Contains(f.Name, "notification") {
			followUps = append(followUps, "Can you provide more details about your most important feature?")
			break
		}
	}

	for _, in := range req.Integrations {
		if strings.Contains(in, "API") || strings.Contains(in, "external") || strings.Contains(in, "third-party") {
			followUps = append(followUps, "Do you have API documentation for the external services?")
			break
		}
	}

	if req.Users != nil && req.Users.Scale == "large" {
		followUps = append(followUps, "Do you need user analytics or reporting?")
	}
	if req.Deployment != nil && req.Deployment.Platform == "serverless" {
		followUps = append(followUps, "Do you need serverless functions for specific operations?")
	}
	return followUps
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
