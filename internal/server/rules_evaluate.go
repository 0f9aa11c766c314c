package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/PCISGroup/rosterboard/internal/routing"
	"github.com/PCISGroup/rosterboard/pkg/uuidv7"
)

const (
	ruleDecisionAllow = "allow"
	ruleDecisionDeny  = "deny"

	reasonNoRuleMatched = "no_rule_matched"
)

type ruleCandidate struct {
	RuleID          string `json:"rule_id"`
	Priority        int    `json:"priority"`
	EffectiveDate   string `json:"effective_date"`
	EndDate         string `json:"end_date,omitempty"`
	EligibilityExpr string `json:"eligibility_expr"`
	DecisionExpr    string `json:"decision_expr"`
	ReasonCode      string `json:"reason_code"`
}

type rulesEvaluateRequest struct {
	EmployeeID string          `json:"employee_uuid"`
	Date       string          `json:"date"`
	StatusID   string          `json:"status_id"`
	RequestID  string          `json:"request_id"`
	Rules      []ruleCandidate `json:"rules"`
}

type ruleEvaluationContext struct {
	ActorEmail string `json:"actor_email,omitempty"`
	ActorRole  string `json:"actor_role,omitempty"`
	EmployeeID string `json:"employee_uuid"`
	Date       string `json:"date"`
	StatusID   string `json:"status_id"`
	RequestID  string `json:"request_id"`
}

type rulesEvaluateResponse struct {
	RequestID           string                `json:"request_id"`
	Decision            string                `json:"decision"`
	ReasonCode          string                `json:"reason_code"`
	SelectedRuleID      string                `json:"selected_rule_id,omitempty"`
	SelectedRule        *ruleCandidate        `json:"selected_rule,omitempty"`
	BriefExplain        string                `json:"brief_explain"`
	Context             ruleEvaluationContext `json:"context"`
	CandidatesEvaluated int                   `json:"candidates_evaluated"`
	EligibilityMatched  int                   `json:"eligibility_matched"`
}

var newRulesCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("ctx", cel.MapType(cel.StringType, cel.StringType)))
}

var newRulesCELProgram = func(env *cel.Env, ast *cel.Ast) (cel.Program, error) {
	return env.Program(ast)
}

var ruleEligibilityProgramCache sync.Map
var ruleDecisionProgramCache sync.Map

func handleRulesEvaluateAPI(w http.ResponseWriter, r *http.Request) {
	var req rulesEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.Date = strings.TrimSpace(req.Date)
	req.StatusID = strings.TrimSpace(req.StatusID)
	req.RequestID = strings.TrimSpace(req.RequestID)
	if req.EmployeeID == "" || req.StatusID == "" || !validDate(req.Date) {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusBadRequest, "invalid_request", "employee_uuid/date/status_id required")
		return
	}
	if len(req.Rules) == 0 {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusBadRequest, "invalid_request", "rules required")
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		if rid, err := uuidv7.NewString(); err == nil {
			requestID = rid
		}
	}

	evalCtx := ruleEvaluationContext{
		EmployeeID: req.EmployeeID,
		Date:       req.Date,
		StatusID:   req.StatusID,
		RequestID:  requestID,
	}
	if principal, ok := currentPrincipal(r.Context()); ok {
		evalCtx.ActorEmail = strings.TrimSpace(principal.Email)
		evalCtx.ActorRole = strings.ToLower(strings.TrimSpace(principal.RoleSlug))
	}
	ctxMap := evalCtx.celContextMap()

	decision, reasonCode, selected, matched, err := evaluateRuleCandidates(ctxMap, req.Rules)
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "rule_error", err.Error())
		return
	}

	response := rulesEvaluateResponse{
		RequestID:           requestID,
		Decision:            decision,
		ReasonCode:          reasonCode,
		BriefExplain:        ruleBriefExplain(selected, matched),
		Context:             evalCtx,
		CandidatesEvaluated: len(req.Rules),
		EligibilityMatched:  matched,
	}
	if selected != nil {
		response.SelectedRuleID = selected.RuleID
		response.SelectedRule = selected
	}
	writeJSON(w, response)
}

func (c ruleEvaluationContext) celContextMap() map[string]string {
	return map[string]string{
		"actor_email":   c.ActorEmail,
		"actor_role":    c.ActorRole,
		"employee_uuid": c.EmployeeID,
		"date":          c.Date,
		"status_id":     c.StatusID,
		"request_id":    c.RequestID,
	}
}

func evaluateRuleCandidates(ctxMap map[string]string, candidates []ruleCandidate) (string, string, *ruleCandidate, int, error) {
	matched := 0
	var selected *ruleCandidate
	for i := range candidates {
		candidate := candidates[i]
		eligible, err := evalEligibilityExpr(candidate.EligibilityExpr, ctxMap)
		if err != nil {
			return "", "", nil, matched, err
		}
		if !eligible {
			continue
		}
		matched++
		if selected == nil || candidate.Priority > selected.Priority ||
			(candidate.Priority == selected.Priority && candidate.EffectiveDate > selected.EffectiveDate) {
			copyCandidate := candidate
			selected = &copyCandidate
		}
	}
	if selected == nil {
		return ruleDecisionDeny, reasonNoRuleMatched, nil, matched, nil
	}
	decision, err := evalDecisionExpr(selected.DecisionExpr, ctxMap)
	if err != nil {
		return "", "", nil, matched, err
	}
	switch decision {
	case ruleDecisionAllow, ruleDecisionDeny:
	default:
		decision = ruleDecisionDeny
	}
	reasonCode := strings.TrimSpace(selected.ReasonCode)
	if reasonCode == "" {
		reasonCode = reasonNoRuleMatched
	}
	return decision, reasonCode, selected, matched, nil
}

func evalEligibilityExpr(expr string, ctxMap map[string]string) (bool, error) {
	program, err := loadOrCompileRuleProgram(expr, cel.BoolType, &ruleEligibilityProgramCache)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"ctx": ctxMap})
	if err != nil {
		return false, err
	}
	v := out.Value().(bool)
	return v, nil
}

func evalDecisionExpr(expr string, ctxMap map[string]string) (string, error) {
	program, err := loadOrCompileRuleProgram(expr, cel.StringType, &ruleDecisionProgramCache)
	if err != nil {
		return "", err
	}
	out, _, err := program.Eval(map[string]any{"ctx": ctxMap})
	if err != nil {
		return "", err
	}
	v := out.Value().(string)
	return strings.ToLower(strings.TrimSpace(v)), nil
}

func loadOrCompileRuleProgram(expr string, outputType *cel.Type, cache *sync.Map) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("expression required")
	}
	if cached, ok := cache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newRulesCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != outputType {
		return nil, errors.New("expression output type mismatch")
	}
	program, err := newRulesCELProgram(env, ast)
	if err != nil {
		return nil, err
	}
	cache.Store(expr, program)
	return program, nil
}

func ruleBriefExplain(selected *ruleCandidate, matched int) string {
	if selected == nil {
		return "no eligible rule candidate"
	}
	return fmt.Sprintf("selected %s (priority=%d, matched=%d)", selected.RuleID, selected.Priority, matched)
}
