package analytics

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// normalizePrompt 归一化提示词用于相似度比较：小写并压缩空白
func normalizePrompt(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Similarity returns a score in [0,1] for two prompts based on the
// edit distance over the diff. Identical prompts score 1, completely
// different prompts score 0.
//
// DiffLevenshtein 统计的是插入+删除的字符数，可能超过较长一侧的长度，
// 因此按两侧长度之和归一化，保证结果不为负。
func Similarity(a, b string) float64 {
	na := normalizePrompt(a)
	nb := normalizePrompt(b)
	if na == nb {
		return 1
	}
	combined := len([]rune(na)) + len([]rune(nb))
	if combined == 0 {
		return 1
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(na, nb, false)
	distance := dmp.DiffLevenshtein(diffs)
	score := 1 - float64(distance)/float64(combined)
	if score < 0 {
		return 0
	}
	return score
}
