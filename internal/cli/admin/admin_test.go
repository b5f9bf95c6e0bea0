package admin

import (
	"context"
	"testing"

	"github.com/cloo-solutions/vaidya/internal/config"
	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/cloo-solutions/vaidya/internal/vectorstore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracesSampleRate(t *testing.T) {
	assert.Equal(t, 1.0, tracesSampleRate("development"))
	assert.Equal(t, 1.0, tracesSampleRate(""))
	assert.Equal(t, 0.1, tracesSampleRate("production"))
}

func TestNewVectorIndex_Memory(t *testing.T) {
	cfg := &config.Config{VectorBackend: config.VectorBackendMemory, EmbeddingDimensions: 8}

	index := newVectorIndex(cfg, nil)

	_, ok := index.(*memory.Index)
	assert.True(t, ok)
}

func TestUnavailableBackend(t *testing.T) {
	var b unavailableBackend

	_, err := b.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeEmbeddingBackend, domain.CodeOf(err))

	_, err = b.Complete(context.Background(), service.CompletionRequest{UserPrompt: "x"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeGeneration, domain.CodeOf(err))
}

func TestUserContextFlags(t *testing.T) {
	cmd := AskCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--age", "70", "--medication", "warfarin", "--medication", "aspirin"}))

	age, err := cmd.Flags().GetInt("age")
	require.NoError(t, err)
	assert.Equal(t, 70, age)
	meds, err := cmd.Flags().GetStringSlice("medication")
	require.NoError(t, err)
	assert.Equal(t, []string{"warfarin", "aspirin"}, meds)
}

func TestUserContext_UnknownAge(t *testing.T) {
	f := userContextFlags{medications: []string{"warfarin"}}

	uc := f.userContext()

	assert.Nil(t, uc.Age)
	assert.Equal(t, []string{"warfarin"}, uc.Medications)
}

func TestUserContext_Age(t *testing.T) {
	f := userContextFlags{age: 42}

	uc := f.userContext()

	require.NotNil(t, uc.Age)
	assert.Equal(t, 42, *uc.Age)
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "hypertension-guideline", titleFromPath("/tmp/docs/hypertension-guideline.txt"))
	assert.Equal(t, "notes", titleFromPath("notes"))
}

func TestDocumentsCmd_Subcommands(t *testing.T) {
	cmd := DocumentsCmd()

	names := []string{}
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"add", "reprocess", "delete-vectors", "search", "stats"}, names)
}

func TestMigrateCmd_DownRejectsBadSteps(t *testing.T) {
	cmd := MigrateCmd()
	cmd.SetArgs([]string{"down", "zero"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps must be a positive integer")
}
