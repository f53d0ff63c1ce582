package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twnlp/dbqa/internal/chatmodel"
)

type scriptedModel struct {
	answers   []string
	err       error
	histories [][]chatmodel.Message
}

func (s *scriptedModel) Generate(_ context.Context, messages []chatmodel.Message, _ []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	copied := make([]chatmodel.Message, len(messages))
	copy(copied, messages)
	s.histories = append(s.histories, copied)
	if len(s.histories) <= len(s.answers) {
		return s.answers[len(s.histories)-1], nil
	}
	return "", nil
}

func TestChatLoop(t *testing.T) {
	t.Parallel()

	t.Run("keeps history across turns", func(t *testing.T) {
		t.Parallel()
		model := &scriptedModel{answers: []string{"臺北。", "兩百多萬人。"}}
		in := strings.NewReader("首都在哪？\n人口多少？\nexit\n")
		var out bytes.Buffer

		err := chatLoop(context.Background(), model, in, &out)
		require.NoError(t, err)

		require.Len(t, model.histories, 2)
		assert.Len(t, model.histories[0], 1)
		require.Len(t, model.histories[1], 3)
		assert.Equal(t, chatmodel.RoleAssistant, model.histories[1][1].Role)
		assert.Equal(t, "臺北。", model.histories[1][1].Content)

		assert.Contains(t, out.String(), "臺北。")
		assert.Contains(t, out.String(), "兩百多萬人。")
	})

	t.Run("reset clears history", func(t *testing.T) {
		t.Parallel()
		model := &scriptedModel{answers: []string{"答一", "答二"}}
		in := strings.NewReader("問一\nreset\n問二\nquit\n")
		var out bytes.Buffer

		err := chatLoop(context.Background(), model, in, &out)
		require.NoError(t, err)

		require.Len(t, model.histories, 2)
		assert.Len(t, model.histories[1], 1)
		assert.Equal(t, "問二", model.histories[1][0].Content)
	})

	t.Run("blank lines are ignored", func(t *testing.T) {
		t.Parallel()
		model := &scriptedModel{answers: []string{"答"}}
		in := strings.NewReader("\n   \n問題\nexit\n")
		var out bytes.Buffer

		err := chatLoop(context.Background(), model, in, &out)
		require.NoError(t, err)
		assert.Len(t, model.histories, 1)
	})

	t.Run("eof ends the loop cleanly", func(t *testing.T) {
		t.Parallel()
		model := &scriptedModel{}
		err := chatLoop(context.Background(), model, strings.NewReader(""), &bytes.Buffer{})
		require.NoError(t, err)
	})

	t.Run("generation failure surfaces", func(t *testing.T) {
		t.Parallel()
		model := &scriptedModel{err: errors.New("server gone")}
		in := strings.NewReader("問題\n")
		err := chatLoop(context.Background(), model, in, &bytes.Buffer{})
		require.Error(t, err)
	})
}
