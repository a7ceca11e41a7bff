package source

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Tag holds the hierarchy keys carried in a Snowflake query tag.
type Tag struct {
	Project *string
	Team    *string
	App     *string
	Page    *string
}

// ParseQueryTag reads the JSON query tag set by instrumented apps,
// e.g. {"project_name": "...", "team_name": "...", "app_name":
// "...", "page_name": "..."}. Tags that are not JSON objects, and
// keys that are missing or not strings, come back nil.
func ParseQueryTag(tag string) Tag {
	tag = strings.TrimSpace(tag)
	if tag == "" || !gjson.Valid(tag) {
		return Tag{}
	}
	obj := gjson.Parse(tag)
	if !obj.IsObject() {
		return Tag{}
	}
	str := func(key string) *string {
		v := obj.Get(key)
		if v.Type != gjson.String {
			return nil
		}
		return nullable(v.Str)
	}
	return Tag{
		Project: str("project_name"),
		Team:    str("team_name"),
		App:     str("app_name"),
		Page:    str("page_name"),
	}
}
