package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "viewer view", role: RoleViewer, action: ActionView, allow: true},
		{name: "viewer update", role: RoleViewer, action: ActionUpdateTasks, allow: false},
		{name: "viewer delete", role: RoleViewer, action: ActionDeleteTasks, allow: false},
		{name: "viewer report", role: RoleViewer, action: ActionReport, allow: false},
		{name: "editor update", role: RoleEditor, action: ActionUpdateTasks, allow: true},
		{name: "editor delete", role: RoleEditor, action: ActionDeleteTasks, allow: true},
		{name: "editor report", role: RoleEditor, action: ActionReport, allow: true},
		{name: "editor manage", role: RoleEditor, action: ActionManage, allow: false},
		{name: "owner manage", role: RoleOwner, action: ActionManage, allow: true},
		{name: "owner update", role: RoleOwner, action: ActionUpdateTasks, allow: true},
		// The delete check is deliberately editor-only at the role level.
		{name: "owner delete", role: RoleOwner, action: ActionDeleteTasks, allow: false},
		{name: "unknown role", role: Role("ghost"), action: ActionView, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("owner"); got != RoleOwner {
		t.Fatalf("Normalize(owner) = %q", got)
	}
	if got := Normalize("admin"); got != RoleViewer {
		t.Fatalf("Normalize(admin) = %q, want viewer", got)
	}
	if got := Normalize(""); got != RoleViewer {
		t.Fatalf("Normalize(\"\") = %q, want viewer", got)
	}
}
