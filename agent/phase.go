package agent

import (
	"context"
	"fmt"
	"strings"
)

// Phase is one stage of the research-to-delivery lifecycle. Phases run in
// a fixed order against the same conversation, so each phase sees the
// accumulated context of the previous ones.
type Phase string

const (
	PhaseResearch Phase = "RESEARCH"
	PhasePlan     Phase = "PLAN"
	PhaseBuild    Phase = "BUILD"
	PhaseExecute  Phase = "EXECUTE"
	PhaseFinalize Phase = "FINALIZE"
)

// Phases returns the lifecycle phases in execution order.
func Phases() []Phase {
	return []Phase{PhaseResearch, PhasePlan, PhaseBuild, PhaseExecute, PhaseFinalize}
}

var phaseGoals = map[Phase]string{
	PhaseResearch: `Your goal in this phase is to gather information and understand the requirements.

Actions to take:
1. Search for relevant information, libraries, frameworks, or examples
2. Fetch documentation or tutorials if needed
3. Summarize your findings and identify the best approach

When you have enough information, explain your findings and move to the next phase.`,

	PhasePlan: `Your goal in this phase is to create a detailed implementation plan.

Actions to take:
1. Break down the task into concrete sub-tasks
2. Identify required files, dependencies, and configurations
3. Outline the step-by-step implementation approach
4. Consider potential challenges and how to address them

Provide a clear, numbered plan that you will follow in the BUILD phase.`,

	PhaseBuild: `Your goal in this phase is to implement the solution.

Actions to take:
1. Initialize the project structure
2. Create all necessary files and write code
3. Install dependencies
4. Test code as you go and fix any issues that arise

Iterate until the solution is complete and working.`,

	PhaseExecute: `Your goal in this phase is to test and deploy the solution.

Actions to take:
1. Run tests or verify the application works
2. Build the production version if needed
3. Deploy and verify the deployment is successful`,

	PhaseFinalize: `Your goal in this phase is to wrap up the task.

Actions to take:
1. Summarize what was accomplished
2. Report final results to the user`,
}

// PhasePrompt builds the user-turn prompt that starts a phase.
func PhasePrompt(phase Phase, task string) string {
	return fmt.Sprintf("Task: %s\n\nCurrent Phase: %s\n\n%s", task, phase, phaseGoals[phase])
}

// PhaseResult records the outcome of a single phase run.
type PhaseResult struct {
	Phase   Phase
	Outcome *Outcome
}

// phaseDetector extends the base detector with the phase-specific
// completion phrase ("research is complete" and so on).
func phaseDetector(phase Phase) CompletionDetector {
	return NewPhraseDetector(
		"phase complete",
		"moving to next phase",
		"ready to proceed",
		fmt.Sprintf("%s is complete", strings.ToLower(string(phase))),
		"finished with",
		"completed successfully",
	)
}

// RunPhases drives the full lifecycle over one orchestrator, one phase at
// a time. A provider error aborts the remaining phases; an exhausted
// iteration budget moves on, since a stalled phase should not wedge the
// whole task.
func (o *Orchestrator) RunPhases(ctx context.Context, task string) ([]PhaseResult, error) {
	baseDetector := o.opts.Detector
	defer func() { o.opts.Detector = baseDetector }()

	var results []PhaseResult
	for _, phase := range Phases() {
		o.opts.Detector = phaseDetector(phase)
		o.opts.Logger.Info("agent.phase.start", "phase", string(phase))

		outcome, err := o.RunSync(ctx, PhasePrompt(phase, task))
		results = append(results, PhaseResult{Phase: phase, Outcome: outcome})
		if err != nil {
			return results, fmt.Errorf("phase %s: %w", phase, err)
		}
		if outcome.Status == StatusMaxIterations {
			o.opts.Logger.Warn("agent.phase.budget_exhausted", "phase", string(phase))
		}
	}

	return results, nil
}
