package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for Issue codes and message ids.
// data provides optional metadata to embed in the message (for example,
// "expected" or "keys").
type Translator interface {
	Message(code string, data map[string]string) string
}

// Message ids that are not issue codes but select a more specific sentence.
const (
	MsgKeySlash      = "key_slash"
	MsgKeyDot        = "key_dot"
	MsgVisibleMember = "visible_member"
	MsgBlankKey      = "blank_key"
)

// Descriptor ids usable as the "expected" datum; they are translated before
// being substituted into the template.
const (
	ExpectHash           = "hash"
	ExpectString         = "string"
	ExpectBoolean        = "boolean"
	ExpectNumber         = "number"
	ExpectScalar         = "scalar"
	ExpectStringList     = "string_list"
	ExpectStringOrRegexp = "string_or_regex_list"
	ExpectKeyValueMap    = "kv_map"
	ExpectDuration       = "duration"
	ExpectRegexp         = "regexp"
	ExpectInteger        = "integer"
)

var messages = map[string]map[string]string{
	"en": {
		"invalid_type":   "config should be {expected}",
		"unknown_key":    "config contains unknown keys: {keys}",
		"invalid_format": "config should be {expected}",
		"invalid_enum":   "config should be one of: {choices}",
		"too_small":      "config must be greater than or equal to {min}",
		"too_big":        "config must be less than or equal to {max}",
		"too_short":      "config requires at least {min} item(s)",
		"too_long":       "config is too long (maximum is {max} characters)",
		"blank":          "config can't be blank",
		"missing_key":    "config missing required keys: {keys}",
		"forbidden_key":  "config contains keys not allowed here: {keys}",
		"parse_error":    "parse error",
		"duplicate_key":  "duplicate key",
		"truncated":      "truncated",
		MsgKeySlash:      `config cannot contain the "/" character`,
		MsgKeyDot:        `config cannot be "." or ".."`,
		MsgVisibleMember: "config should contain at least one visible job",
		MsgBlankKey:      "config contains a blank job name",
	},
	"ja": {
		"invalid_type":   "設定は{expected}である必要があります",
		"unknown_key":    "設定に未知のキーが含まれています: {keys}",
		"invalid_format": "設定は{expected}である必要があります",
		"invalid_enum":   "設定は次のいずれかである必要があります: {choices}",
		"too_small":      "設定は{min}以上である必要があります",
		"too_big":        "設定は{max}以下である必要があります",
		"too_short":      "設定には少なくとも{min}個の要素が必要です",
		"too_long":       "設定が長すぎます (最大{max}文字)",
		"blank":          "設定を空にすることはできません",
		"missing_key":    "設定に必須キーがありません: {keys}",
		"forbidden_key":  "設定にここでは使用できないキーが含まれています: {keys}",
		"parse_error":    "解析エラー",
		"duplicate_key":  "キーが重複しています",
		"truncated":      "打ち切られました",
		MsgKeySlash:      `設定に "/" を含めることはできません`,
		MsgKeyDot:        `設定を "." または ".." にすることはできません`,
		MsgVisibleMember: "設定には少なくとも1つの表示ジョブが必要です",
		MsgBlankKey:      "設定に空のジョブ名が含まれています",
	},
}

var descriptors = map[string]map[string]string{
	"en": {
		ExpectHash:           "a hash",
		ExpectString:         "a string",
		ExpectBoolean:        "a boolean value",
		ExpectNumber:         "a number",
		ExpectScalar:         "a string, a boolean value or a number",
		ExpectStringList:     "an array of strings",
		ExpectStringOrRegexp: "an array of strings or regexps",
		ExpectKeyValueMap:    "a hash of key value pairs",
		ExpectDuration:       "a duration",
		ExpectRegexp:         "a regular expression",
		ExpectInteger:        "an integer",
	},
	"ja": {
		ExpectHash:           "ハッシュ",
		ExpectString:         "文字列",
		ExpectBoolean:        "真偽値",
		ExpectNumber:         "数値",
		ExpectScalar:         "文字列・真偽値・数値のいずれか",
		ExpectStringList:     "文字列の配列",
		ExpectStringOrRegexp: "文字列または正規表現の配列",
		ExpectKeyValueMap:    "キーと値のペアのハッシュ",
		ExpectDuration:       "期間",
		ExpectRegexp:         "正規表現",
		ExpectInteger:        "整数",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	tpl, ok := messages[t.lang][code]
	if !ok {
		return code
	}
	if len(data) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		if k == "expected" {
			if d, ok := descriptors[t.lang][v]; ok {
				v = d
			}
		}
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
