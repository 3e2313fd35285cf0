package document_test

import (
	"testing"

	"restronaut/internal/document"
)

func TestToJSON(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{
			name: "text and empty elements",
			xml:  `<CheckFinalization><Memo>123456</Memo><Note/></CheckFinalization>`,
			want: `{"CheckFinalization":{"Memo":"123456","Note":null}}`,
		},
		{
			name: "repeated siblings become array at first position",
			xml:  "<Check>\n  <Item>A</Item>\n  <Total>3</Total>\n  <Item>B</Item>\n</Check>",
			want: `{"Check":{"Item":["A","B"],"Total":"3"}}`,
		},
		{
			name: "attributes and mixed text",
			xml:  `<Check id="7"><Line qty="2">Fries &amp; Dip</Line></Check>`,
			want: `{"Check":{"@id":"7","Line":{"@qty":"2","#text":"Fries & Dip"}}}`,
		},
		{
			name: "root with only text",
			xml:  `<Ping>ok</Ping>`,
			want: `{"Ping":"ok"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := document.Parse([]byte(tt.xml))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, err := document.ToJSON(tree)
			if err != nil {
				t.Fatalf("ToJSON: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ToJSON = %s, want %s", got, tt.want)
			}
		})
	}
}
