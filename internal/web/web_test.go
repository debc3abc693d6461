package web

import "testing"

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates() error = %v", err)
	}

	for _, name := range []string{"header", "footer", "login.tmpl", "register.tmpl", "dashboard.tmpl", "profile.tmpl", "history.tmpl", "agent.tmpl"} {
		if tmpl.Lookup(name) == nil {
			t.Errorf("template %q not defined", name)
		}
	}
}
