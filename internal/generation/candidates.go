package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/namegen-api/internal/domain"
)

// SurnameInfo is the surname background an LLM returns with each candidate.
type SurnameInfo struct {
	Origin  string   `json:"origin,omitempty"`
	Meaning string   `json:"meaning,omitempty"`
	Story   string   `json:"story,omitempty"`
	Figures []string `json:"figures,omitempty"`
}

// Candidate is one entry of the JSON array requested from an LLM.
type Candidate struct {
	Name        string      `json:"name"`
	Pinyin      string      `json:"pinyin,omitempty"`
	Style       string      `json:"style,omitempty"`
	Meaning     string      `json:"meaning,omitempty"`
	NameInsight string      `json:"nameInsight,omitempty"`
	SurnameInfo SurnameInfo `json:"surnameInfo"`
}

// ToResult converts the candidate into the task result payload.
func (c Candidate) ToResult(fallbackStyle string) *domain.NameResult {
	style := c.Style
	if style == "" {
		style = fallbackStyle
	}
	return &domain.NameResult{
		Style:   style,
		Name:    c.Name,
		Meaning: c.Meaning,
		Story:   c.SurnameInfo.Story,
	}
}

var (
	jsonArrayPattern  = regexp.MustCompile(`\[[\s\S]*\]`)
	trailingArrayPat  = regexp.MustCompile(`,\s*\]`)
	trailingObjectPat = regexp.MustCompile(`,\s*\}`)
	controlChars      = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

	quoteReplacer = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// ExtractJSONArray isolates the JSON array in free-form model output and
// repairs the usual defects: markdown code fences, surrounding prose,
// typographic quotes and trailing commas.
func ExtractJSONArray(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		start, end := strings.Index(s, "["), strings.LastIndex(s, "]")
		if start != -1 && end > start {
			s = s[start : end+1]
		}
	}
	if !(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) {
		if m := jsonArrayPattern.FindString(s); m != "" {
			s = m
		}
	}
	s = quoteReplacer.Replace(s)
	s = trailingArrayPat.ReplaceAllString(s, "]")
	s = trailingObjectPat.ReplaceAllString(s, "}")
	return s
}

// ParseCandidates decodes model output into candidates. A second attempt
// strips control characters before giving up with ErrInvalidResponse.
func ParseCandidates(text string) ([]Candidate, error) {
	raw := ExtractJSONArray(text)

	var candidates []Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		cleaned := controlChars.ReplaceAllString(raw, "")
		if err2 := json.Unmarshal([]byte(cleaned), &candidates); err2 != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}
	return candidates, nil
}

// fallbackStories are used when a candidate arrives without a surname story.
var fallbackStories = map[string]string{
	"李": "李白：仗剑天涯，夜宿山寺写诗成绝唱，豪放飘逸，诗名传千古",
	"王": "王羲之：兰亭集会挥毫成序，书法千古流芳，世称书圣",
	"张": "张仲景：撰《伤寒论》体系医理，救济百姓，医道传承不绝",
	"刘": "刘备：三顾茅庐礼贤下士，兴复汉室，仁义立身",
	"林": "林则徐：虎门销烟严禁鸦片，开眼看世界，近代维新先声",
}

const missingStory = "该姓人物故事暂缺"

// Full names of historical figures that must not be returned verbatim.
var bannedNames = map[string]bool{
	"李白": true, "王羲之": true, "张仲景": true, "刘备": true, "林则徐": true, "孔子": true,
	"孟子": true, "屈原": true, "杜甫": true, "苏轼": true, "陶渊明": true, "白居易": true,
}

var compoundSurnames = []string{
	"欧阳", "司马", "上官", "诸葛", "东方", "夏侯", "尉迟",
	"独孤", "令狐", "长孙", "宇文", "赫连", "拓跋",
}

// Surname returns the family name of a Chinese full name, recognising the
// common two-character surnames.
func Surname(name string) string {
	if name == "" {
		return ""
	}
	for _, s := range compoundSurnames {
		if strings.HasPrefix(name, s) {
			return s
		}
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(r)
}

// NormalizeCandidates fills missing stories and insights, caps stories at
// domain.MaxStoryRunes, drops nameless or banned names and limits how often a
// surname may repeat (at most a fifth of the list, but always one).
func NormalizeCandidates(candidates []Candidate) []Candidate {
	maxPerSurname := len(candidates) / 5
	if maxPerSurname < 1 {
		maxPerSurname = 1
	}

	perSurname := make(map[string]int)
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" || bannedNames[c.Name] {
			continue
		}

		surname := Surname(c.Name)
		if perSurname[surname] >= maxPerSurname {
			continue
		}
		perSurname[surname]++

		story := strings.TrimSpace(c.SurnameInfo.Story)
		if story == "" {
			story = fallbackStories[surname]
			if story == "" {
				story = missingStory
			}
		}
		if utf8.RuneCountInString(story) > domain.MaxStoryRunes {
			story = string([]rune(story)[:domain.MaxStoryRunes])
		}
		c.SurnameInfo.Story = story

		if c.NameInsight == "" {
			c.NameInsight = fmt.Sprintf("该名由姓与名组成，整体风格偏%s。寓意：%s。", c.Style, c.Meaning)
		}
		out = append(out, c)
	}
	return out
}
