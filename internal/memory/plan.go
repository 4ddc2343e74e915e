package memory

import (
	"os"
)

// DefaultPlan is the prep plan template served until the user writes their
// own.
const DefaultPlan = `# Interview Prep Plan

## Goals
- [ ] Pick a target role and company
- [ ] Complete 30 practice questions
- [ ] Run two full mock interview sessions

## This Week
- [ ] Review data structures fundamentals
- [ ] Solve three questions per day
- [ ] Write up one behavioral story

## Notes
(none yet)
`

// ReadPlan returns the user's prep plan, or the default template when no
// plan has been written yet.
func ReadPlan(home, userID string) (string, error) {
	data, err := os.ReadFile(PlanPath(UserDir(home, userID)))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPlan, nil
		}
		return "", err
	}
	return string(data), nil
}

// WritePlan stores the user's prep plan. Creates the user directory if needed.
func WritePlan(home, userID, content string) error {
	dir, err := EnsureUserDir(home, userID)
	if err != nil {
		return err
	}
	return os.WriteFile(PlanPath(dir), []byte(content), 0o644)
}
