package abandon_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaspr/jaspr/internal/abandon"
	"github.com/jaspr/jaspr/internal/stack"
	"github.com/jaspr/jaspr/output/mockoutput"
)

func TestConfirmAutoConfirmsWhenNothingDropped(t *testing.T) {
	printer := mockoutput.New()
	check := abandon.ConfirmFrom(printer, strings.NewReader(""), false)
	assert.True(t, check(context.Background(), nil))
}

func TestConfirmAutoConfirmFlagSkipsPrompt(t *testing.T) {
	printer := mockoutput.New()
	check := abandon.ConfirmFrom(printer, strings.NewReader(""), true)
	dropped := []*stack.PullRequest{{Number: 1, Title: "drop me"}}
	assert.True(t, check(context.Background(), dropped))
}

func TestConfirmAsksAndHonorsNo(t *testing.T) {
	printer := mockoutput.New()
	check := abandon.ConfirmFrom(printer, strings.NewReader("n\n"), false)
	dropped := []*stack.PullRequest{{Number: 1, Title: "drop me"}}
	assert.False(t, check(context.Background(), dropped))
}

func TestConfirmAsksAndHonorsYes(t *testing.T) {
	printer := mockoutput.New()
	check := abandon.ConfirmFrom(printer, strings.NewReader("y\n"), false)
	dropped := []*stack.PullRequest{{Number: 1, Title: "drop me"}}
	assert.True(t, check(context.Background(), dropped))
}
