package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHTML(t *testing.T) {
	t.Parallel()

	t.Run("extracts article body", func(t *testing.T) {
		t.Parallel()
		page := `<!DOCTYPE html><html><head><title>公告</title></head><body>
<article><h1>申請須知</h1>
<p>申請人應備妥身分證明文件，至戶籍所在地機關辦理。相關表單可於網站下載，郵寄申請亦可受理。</p>
<p>辦理時間為每週一至週五上午九時至下午五時，例假日及國定假日不受理申請。</p></article>
<script>console.log("tracking")</script>
</body></html>`

		text, err := ExtractHTML([]byte(page))
		require.NoError(t, err)
		assert.Contains(t, text, "申請人應備妥身分證明文件")
		assert.Contains(t, text, "辦理時間為每週一至週五")
		assert.NotContains(t, text, "console.log")
	})

	t.Run("falls back to body text for bare markup", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><table><tr><td>項目</td><td>內容</td></tr></table></body></html>`

		text, err := ExtractHTML([]byte(page))
		require.NoError(t, err)
		assert.Contains(t, text, "項目")
		assert.Contains(t, text, "內容")
	})

	t.Run("collapses markup whitespace", func(t *testing.T) {
		t.Parallel()
		page := "<html><body><div>第一行</div>\n\n\n\n<div>第二行</div></body></html>"

		text, err := ExtractHTML([]byte(page))
		require.NoError(t, err)
		assert.False(t, strings.Contains(text, "\n\n\n"))
	})
}

func TestSqueezeWhitespace(t *testing.T) {
	t.Parallel()

	in := "  第一行  \n\n\n\n第二行\n第三行\n"
	want := "第一行\n\n第二行\n第三行"
	assert.Equal(t, want, squeezeWhitespace(in))
}
