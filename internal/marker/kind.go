// Package marker tokenizes single lines of markdown for structural block
// markers. Markers are HTML-comment envelopes of the form
// <!-- type[:subtype]:name key="value" ... --> with a matching
// <!-- /type[:subtype]:name --> close. The scanner is stateless; open/close
// pairing is the caller's job.
package marker

import "fmt"

// Kind is the closed set of block types a marker may declare. Unknown kinds
// are a parse error, never a silent skip: an unrecognized type almost always
// means a typo that would corrupt downstream pairing.
type Kind string

const (
	KindFree         Kind = "free"
	KindParagraph    Kind = "paragraph"
	KindID           Kind = "id"
	KindIDRef        Kind = "id-ref"
	KindList         Kind = "list"
	KindNumberedList Kind = "numbered-list"
	KindTaskList     Kind = "task-list"
	KindTable        Kind = "table"
	KindCode         Kind = "code"
	KindH1           Kind = "h1"
	KindH2           Kind = "h2"
	KindH3           Kind = "h3"
	KindH4           Kind = "h4"
	KindH5           Kind = "h5"
	KindH6           Kind = "h6"
	KindLink         Kind = "link"
	KindImage        Kind = "image"
)

// kinds is the lookup table backing ParseKind.
var kinds = map[string]Kind{
	"free":          KindFree,
	"paragraph":     KindParagraph,
	"id":            KindID,
	"id-ref":        KindIDRef,
	"list":          KindList,
	"numbered-list": KindNumberedList,
	"task-list":     KindTaskList,
	"table":         KindTable,
	"code":          KindCode,
	"h1":            KindH1,
	"h2":            KindH2,
	"h3":            KindH3,
	"h4":            KindH4,
	"h5":            KindH5,
	"h6":            KindH6,
	"link":          KindLink,
	"image":         KindImage,
}

// subtypes folds type:subtype pairs onto canonical kinds, so
// list:numbered and numbered-list name the same thing.
var subtypes = map[string]Kind{
	"list:numbered": KindNumberedList,
	"list:task":     KindTaskList,
	"id:ref":        KindIDRef,
}

// ParseKind maps a raw type token (with optional subtype) to a Kind.
func ParseKind(raw, subtype string) (Kind, error) {
	if subtype != "" {
		if k, ok := subtypes[raw+":"+subtype]; ok {
			return k, nil
		}
		return "", fmt.Errorf("unknown marker type %q", raw+":"+subtype)
	}
	if k, ok := kinds[raw]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown marker type %q", raw)
}

// HeadingLevel returns the heading depth for h1..h6 kinds, or 0 for
// non-heading kinds.
func (k Kind) HeadingLevel() int {
	switch k {
	case KindH1:
		return 1
	case KindH2:
		return 2
	case KindH3:
		return 3
	case KindH4:
		return 4
	case KindH5:
		return 5
	case KindH6:
		return 6
	}
	return 0
}
