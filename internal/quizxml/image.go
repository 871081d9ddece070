package quizxml

import (
	"path"
	"regexp"
	"strings"
)

var imgSrcPattern = regexp.MustCompile(`(?is)(<img\b[^>]*?\bsrc=")([^"]*)(")`)

// attachment is a Moodle <file> child: base64 content plus the original file name.
type attachment struct {
	Name    string
	Content string
}

func attachmentsOf(owner node) []attachment {
	files := owner.all("file")
	out := make([]attachment, 0, len(files))
	for _, f := range files {
		name, _ := f.attr("name")
		out = append(out, attachment{Name: name, Content: strings.Join(strings.Fields(f.CharData), "")})
	}
	return out
}

// dataURI renders the attachment as an inline image source.
func (a attachment) dataURI() (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(a.Name), "."))
	if ext == "" || a.Content == "" {
		return "", false
	}
	if ext == "svg" {
		ext = "svg+xml"
	}
	return "data:image/" + ext + ";base64," + a.Content, true
}

// inlineImage rewrites the src of the first <img> in fragment to a data URI built from the
// owner's attached file. Fragments without an <img> or without an attachment are returned
// unchanged.
func inlineImage(fragment string, files []attachment) string {
	if len(files) == 0 {
		return fragment
	}
	loc := imgSrcPattern.FindStringSubmatchIndex(fragment)
	if loc == nil {
		return fragment
	}
	src := fragment[loc[4]:loc[5]]
	file := pickAttachment(files, src)
	uri, ok := file.dataURI()
	if !ok {
		return fragment
	}
	return fragment[:loc[4]] + uri + fragment[loc[5]:]
}

// pickAttachment prefers the file the src refers to (Moodle writes @@PLUGINFILE@@/<name>)
// and falls back to the first attachment.
func pickAttachment(files []attachment, src string) attachment {
	base := path.Base(strings.ReplaceAll(src, "%20", " "))
	for _, f := range files {
		if f.Name != "" && f.Name == base {
			return f
		}
	}
	return files[0]
}
