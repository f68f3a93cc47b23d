package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssueValidate(t *testing.T) {
	ok := Issue{Subject: "Weekly", HTMLContent: "<p>hi</p>", TextContent: "hi"}
	assert.NoError(t, ok.Validate())

	htmlOnly := Issue{Subject: "Weekly", HTMLContent: "<p>hi</p>"}
	assert.NoError(t, htmlOnly.Validate())

	noSubject := Issue{HTMLContent: "<p>hi</p>"}
	assert.Error(t, noSubject.Validate())

	noBody := Issue{Subject: "Weekly"}
	assert.Error(t, noBody.Validate())
}

func TestDispatchReport(t *testing.T) {
	r := DispatchReport{
		Attempted: 5,
		Succeeded: 3,
		Failures: []DispatchFailure{
			{Email: "a@example.com", Reason: "timeout"},
			{Email: "b@example.com", Reason: "rejected"},
		},
	}
	assert.Equal(t, 2, r.Failed())
	assert.Equal(t, "attempted=5 succeeded=3 failed=2", r.Summary())
}
