package template

import (
	"errors"
	"testing"
)

func testParams() ParameterSet {
	return ParameterSet{
		"cluster_id":      "abc123",
		"region":          "ams3",
		"spaces_endpoint": "ams3.digitaloceanspaces.com",
	}
}

func TestResolve_SubstitutesPlaceholders(t *testing.T) {
	tpl := Template{
		Kind: KindHelmRelease,
		Name: "loki",
		Attributes: map[string]string{
			"endpoint":    "{{ spaces_endpoint }}",
			"bucket_name": "qovery-logs-{{ cluster_id }}",
			"static":      "unchanged",
		},
	}

	resolved, enabled, err := Resolve(tpl, testParams(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !enabled {
		t.Fatal("expected template to be enabled")
	}
	if got := resolved.Attributes["endpoint"]; got != "ams3.digitaloceanspaces.com" {
		t.Errorf("endpoint = %q, want ams3.digitaloceanspaces.com", got)
	}
	if got := resolved.Attributes["bucket_name"]; got != "qovery-logs-abc123" {
		t.Errorf("bucket_name = %q, want qovery-logs-abc123", got)
	}
	if got := resolved.Attributes["static"]; got != "unchanged" {
		t.Errorf("static = %q, want unchanged", got)
	}
	if resolved.ID != "helm_release/loki" {
		t.Errorf("ID = %q, want helm_release/loki", resolved.ID)
	}
}

func TestResolve_DisabledTemplateIsAbsent(t *testing.T) {
	tpl := Template{
		Kind:      KindHelmRelease,
		Name:      "loki",
		EnabledIf: "log_history_enabled",
		Attributes: map[string]string{
			"endpoint": "{{ spaces_endpoint }}",
		},
	}

	resolved, enabled, err := Resolve(tpl, testParams(), Flags{"log_history_enabled": false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enabled {
		t.Fatal("expected template to be disabled")
	}
	if resolved != nil {
		t.Fatal("disabled template must resolve to nothing, not an empty resource")
	}
}

func TestResolve_UnknownFlagMeansDisabled(t *testing.T) {
	tpl := Template{Kind: KindBucket, Name: "x", EnabledIf: "no_such_flag"}

	_, enabled, err := Resolve(tpl, testParams(), Flags{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enabled {
		t.Error("missing flag should evaluate to false")
	}
}

func TestResolve_UnresolvedParameterIsFatal(t *testing.T) {
	tpl := Template{
		Kind: KindHelmRelease,
		Name: "nginx-ingress",
		Attributes: map[string]string{
			"hostname": "{{ wildcard_dns }}",
			"token":    "{{ api_token }}",
		},
	}

	_, _, err := Resolve(tpl, testParams(), nil)
	if err == nil {
		t.Fatal("expected UnresolvedParameterError")
	}

	var unresolved *UnresolvedParameterError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedParameterError, got %T: %v", err, err)
	}
	if unresolved.TemplateID != "helm_release/nginx-ingress" {
		t.Errorf("TemplateID = %q", unresolved.TemplateID)
	}
	// Sorted, both missing names reported.
	want := []string{"api_token", "wildcard_dns"}
	if len(unresolved.Parameters) != len(want) {
		t.Fatalf("Parameters = %v, want %v", unresolved.Parameters, want)
	}
	for i := range want {
		if unresolved.Parameters[i] != want[i] {
			t.Errorf("Parameters[%d] = %q, want %q", i, unresolved.Parameters[i], want[i])
		}
	}
}

func TestResolve_NoResubstitutionOfParameterValues(t *testing.T) {
	params := ParameterSet{
		"outer": "{{ inner }}",
		"inner": "should-not-appear",
	}
	tpl := Template{
		Kind:       KindBucket,
		Name:       "logs",
		Attributes: map[string]string{"path": "{{ outer }}"},
	}

	resolved, _, err := Resolve(tpl, params, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A parameter value containing placeholder syntax is a literal, never an
	// injection point for a second round of substitution.
	if got := resolved.Attributes["path"]; got != "{{ inner }}" {
		t.Errorf("path = %q, want literal {{ inner }}", got)
	}
}

func TestResolve_ProtectedDerivedFromKind(t *testing.T) {
	bucket := Template{Kind: KindBucket, Name: "logs"}
	release := Template{Kind: KindHelmRelease, Name: "loki"}

	rb, _, err := Resolve(bucket, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rr, _, err := Resolve(release, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rb.Protected {
		t.Error("bucket must be protected")
	}
	if rr.Protected {
		t.Error("helm release must not be protected")
	}
}

func TestReferences(t *testing.T) {
	tpl := Template{
		Kind: KindHelmRelease,
		Name: "loki",
		Attributes: map[string]string{
			"a": "{{ spaces_secret_access_key }} and {{ region }}",
			"b": "{{ region }}",
		},
	}

	refs := References(tpl)
	want := []string{"region", "spaces_secret_access_key"}
	if len(refs) != len(want) {
		t.Fatalf("References = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("References[%d] = %q, want %q", i, refs[i], want[i])
		}
	}
}

func TestTemplate_Validate(t *testing.T) {
	if err := (Template{Name: "x"}).Validate(); err == nil {
		t.Error("missing kind must be rejected")
	}
	if err := (Template{Kind: KindBucket}).Validate(); err == nil {
		t.Error("missing name must be rejected")
	}
	self := Template{Kind: KindBucket, Name: "x", DependsOn: []string{"bucket/x"}}
	if err := self.Validate(); err == nil {
		t.Error("self-dependency must be rejected")
	}
}
