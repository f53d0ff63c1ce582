package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQACSV(t *testing.T) {
	t.Parallel()

	t.Run("full row renders with resource and date", func(t *testing.T) {
		t.Parallel()
		csvData := "prompt,response,resource,postd_date\n" +
			"如何申請護照？,請至外交部領事事務局辦理。,外交部,2023-01-15\n"

		prepared, err := parseQACSV(strings.NewReader(csvData))
		require.NoError(t, err)
		require.Len(t, prepared, 1)

		want := "類似問題：如何申請護照？\n" +
			"來自外交部的答案：\n" +
			"請至外交部領事事務局辦理。\n" +
			"參考資料：外交部常見問答\n" +
			"日期：2023-01-15"
		assert.Equal(t, want, prepared[0].Body)
		assert.Equal(t, []string{"如何申請護照？", "請至外交部領事事務局辦理。"},
			prepared[0].IndexTexts)
	})

	t.Run("row without resource uses generic label", func(t *testing.T) {
		t.Parallel()
		csvData := "prompt,response,resource,postd_date\n" +
			"問題一,答案一,,\n"

		prepared, err := parseQACSV(strings.NewReader(csvData))
		require.NoError(t, err)
		require.Len(t, prepared, 1)

		want := "類似問題：問題一\n參考答案：\n答案一"
		assert.Equal(t, want, prepared[0].Body)
	})

	t.Run("missing required column fails", func(t *testing.T) {
		t.Parallel()
		_, err := parseQACSV(strings.NewReader("prompt,resource\nq,r\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "response")
	})

	t.Run("empty dataset yields no documents", func(t *testing.T) {
		t.Parallel()
		prepared, err := parseQACSV(strings.NewReader("prompt,response,resource,postd_date\n"))
		require.NoError(t, err)
		assert.Empty(t, prepared)
	})

	t.Run("short rows tolerate missing trailing fields", func(t *testing.T) {
		t.Parallel()
		prepared, err := parseQACSV(strings.NewReader("prompt,response,resource,postd_date\nq1,a1\n"))
		require.NoError(t, err)
		require.Len(t, prepared, 1)
		assert.Equal(t, "類似問題：q1\n參考答案：\na1", prepared[0].Body)
	})
}
