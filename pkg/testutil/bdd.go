package testutil

import "testing"

// Given, When and Then name nested subtests after the behavior they check.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

// Scenario is one When/Then pair. Act runs under When and returns the
// assertion that runs under Then.
type Scenario struct {
	When string
	Then string
	Act  func(t *testing.T) func(t *testing.T)
}

// Scenarios runs every scenario under a single Given.
func Scenarios(t *testing.T, given string, scenarios []Scenario) {
	t.Helper()
	Given(t, given, func(t *testing.T) {
		for _, sc := range scenarios {
			When(t, sc.When, func(t *testing.T) {
				Then(t, sc.Then, sc.Act(t))
			})
		}
	})
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(keyword+" "+desc, fn)
}
