package k8s

import (
	"strings"
)

// k8s Label SelectorElement like EqualityBased
type SelectorElement interface {
	// convert to querystring expression for label
	QueryString(label string) string
}

type LabelSelector map[string]SelectorElement

// convert to string value in form of query string.
func (ls LabelSelector) QueryString() string {
	if len(ls) == 0 {
		return ""
	}

	b := &strings.Builder{}
	for k, v := range ls {
		b.WriteString(v.QueryString(k))
		b.WriteRune(',')
	}
	s := b.String()
	return s[:len(s)-1] // trim rightmost comma
}

// see: https://kubernetes.io/docs/concepts/overview/working-with-objects/labels/#equality-based-requirement
type EqualityBased string

var _ SelectorElement = EqualityBased("")

func Eq(value string) EqualityBased {
	return EqualityBased(value)
}

func (eqb EqualityBased) QueryString(label string) string {
	return label + "=" + string(eqb)
}

func LabelsToSelector(ls map[string]string) LabelSelector {
	sel := LabelSelector{}
	for k, v := range ls {
		sel[k] = EqualityBased(v)
	}
	return sel
}
