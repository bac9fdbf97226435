package app

import (
	"bytes"
	"encoding/json"
)

// LLMRequest は LLM へ送信される直前のリクエストのうち、書き換え対象となるフィールドを保持する。
type LLMRequest struct {
	// Prompt は現在のユーザー入力。
	Prompt string `json:"prompt"`
	// Contexts は会話履歴。各要素は {"role": ..., "content": ...} 形式の JSON オブジェクト。
	// オブジェクトでない要素や content が文字列でない要素はそのまま保持する。
	Contexts []json.RawMessage `json:"contexts,omitempty"`
	// SystemPrompt はシステムプロンプト。
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// Clone は Contexts を含めて複製した LLMRequest を返す。
func (r LLMRequest) Clone() LLMRequest {
	clone := r
	if r.Contexts != nil {
		clone.Contexts = make([]json.RawMessage, len(r.Contexts))
		for i, raw := range r.Contexts {
			clone.Contexts[i] = bytes.Clone(raw)
		}
	}
	return clone
}

// Message は会話履歴の 1 要素を表す。未知のフィールドも保持する。
type Message struct {
	fields map[string]json.RawMessage
}

// ParseMessage は JSON オブジェクトを Message として解釈する。オブジェクトでない場合は false を返す。
func ParseMessage(raw json.RawMessage) (Message, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Message{}, false
	}
	return Message{fields: fields}, true
}

// NewMessage は role と content を持つ Message を生成する。
func NewMessage(role, content string) Message {
	m := Message{fields: map[string]json.RawMessage{}}
	m.setString("role", role)
	m.setString("content", content)
	return m
}

// Role は role フィールドの文字列を返す。
func (m Message) Role() string {
	role, _ := m.stringField("role")
	return role
}

// Content は content フィールドが文字列の場合にその値を返す。
func (m Message) Content() (string, bool) {
	return m.stringField("content")
}

// WithContent は content を差し替えた Message を返す。元の Message は変更しない。
func (m Message) WithContent(content string) Message {
	fields := make(map[string]json.RawMessage, len(m.fields))
	for k, v := range m.fields {
		fields[k] = v
	}
	clone := Message{fields: fields}
	clone.setString("content", content)
	return clone
}

// MarshalJSON は保持しているフィールドを JSON オブジェクトとして出力する。
func (m Message) MarshalJSON() ([]byte, error) {
	if m.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.fields)
}

func (m Message) stringField(key string) (string, bool) {
	raw, ok := m.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (m Message) setString(key, value string) {
	encoded, _ := json.Marshal(value)
	m.fields[key] = encoded
}
