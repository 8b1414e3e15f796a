// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

// repairJSON fixes the formatting mistakes small models make most often in
// JSON mode: keys with a missing opening quote (`{index": 0}`), bare keys
// (`{index: 0}`) and trailing commas before a closing bracket.
// Strings are copied through untouched.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	inString := false
	for i := 0; i < len(in); i++ {
		ch := in[i]

		if inString {
			out = append(out, ch)
			if ch == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out = append(out, ch)
		case ',':
			// Drop the comma if only whitespace separates it from } or ]
			j := skipSpace(in, i+1)
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				continue
			}
			out = append(out, ch)
			out = appendKey(out, in, &i)
		case '{':
			out = append(out, ch)
			out = appendKey(out, in, &i)
		default:
			out = append(out, ch)
		}
	}

	return string(out)
}

// appendKey copies whitespace after position *i and, when an unquoted key
// follows, emits it quoted. *i is left on the last consumed rune.
func appendKey(out, in []rune, i *int) []rune {
	j := skipSpace(in, *i+1)
	out = append(out, in[*i+1:j]...)
	*i = j - 1

	if j >= len(in) || !isLetter(in[j]) {
		return out
	}

	end := j
	for end < len(in) && (isLetter(in[end]) || in[end] == '_') {
		end++
	}

	switch {
	case end+1 < len(in) && in[end] == '"' && in[end+1] == ':':
		// missing opening quote
		out = append(out, '"')
		out = append(out, in[j:end]...)
		out = append(out, '"')
		*i = end
	case end < len(in) && in[end] == ':':
		// bare key
		out = append(out, '"')
		out = append(out, in[j:end]...)
		out = append(out, '"')
		*i = end - 1
	}
	return out
}

func skipSpace(in []rune, i int) int {
	for i < len(in) && (in[i] == ' ' || in[i] == '\n' || in[i] == '\t' || in[i] == '\r') {
		i++
	}
	return i
}
