package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/keeper/internal/access"
	"github.com/roach88/keeper/internal/model"
)

// Views are the only shapes that leave the process. They never carry a
// password credential.

const timeLayout = time.RFC3339

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// table renders rows as aligned columns.
func table(header []string, rows [][]string) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()
	return b.String()
}

// UserView is a user without its credential.
type UserView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        model.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func newUserView(u model.User) UserView {
	return UserView{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		ActivatedAt: u.ActivatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func (v UserView) row() []string {
	return []string{v.ID, v.Name, v.Email, string(v.Role), formatTime(v.ActivatedAt), formatTime(v.LastLoginAt)}
}

var userHeader = []string{"ID", "NAME", "EMAIL", "ROLE", "ACTIVATED", "LAST LOGIN"}

func (v UserView) Text() string {
	return table(userHeader, [][]string{v.row()})
}

// UserList is a list of users.
type UserList []UserView

func newUserList(users []model.User) UserList {
	out := make(UserList, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	return out
}

func (l UserList) Text() string {
	rows := make([][]string, 0, len(l))
	for _, v := range l {
		rows = append(rows, v.row())
	}
	return table(userHeader, rows)
}

// GroupView is a group.
type GroupView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newGroupView(g model.Group) GroupView {
	return GroupView{ID: g.ID, Name: g.Name, Description: g.Description, CreatedAt: g.CreatedAt}
}

var groupHeader = []string{"ID", "NAME", "DESCRIPTION"}

func (v GroupView) row() []string {
	return []string{v.ID, v.Name, orDash(v.Description)}
}

func (v GroupView) Text() string {
	return table(groupHeader, [][]string{v.row()})
}

// GroupList is a list of groups.
type GroupList []GroupView

func newGroupList(groups []model.Group) GroupList {
	out := make(GroupList, 0, len(groups))
	for _, g := range groups {
		out = append(out, newGroupView(g))
	}
	return out
}

func (l GroupList) Text() string {
	rows := make([][]string, 0, len(l))
	for _, v := range l {
		rows = append(rows, v.row())
	}
	return table(groupHeader, rows)
}

// MembershipView links a user to a group.
type MembershipView struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

// MembershipList is a list of memberships.
type MembershipList []MembershipView

func newMembershipList(ms []model.Membership) MembershipList {
	out := make(MembershipList, 0, len(ms))
	for _, m := range ms {
		out = append(out, MembershipView{GroupID: m.GroupID, UserID: m.UserID})
	}
	return out
}

func (l MembershipList) Text() string {
	rows := make([][]string, 0, len(l))
	for _, v := range l {
		rows = append(rows, []string{v.GroupID, v.UserID})
	}
	return table([]string{"GROUP", "USER"}, rows)
}

// PermitView is a read grant.
type PermitView struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id,omitempty"`
	GroupID    string `json:"group_id,omitempty"`
}

func newPermitView(p model.Permit) PermitView {
	return PermitView{ID: p.ID, DocumentID: p.KeeperID, UserID: p.UserID, GroupID: p.GroupID}
}

var permitHeader = []string{"ID", "DOCUMENT", "USER", "GROUP"}

func (v PermitView) row() []string {
	return []string{v.ID, v.DocumentID, orDash(v.UserID), orDash(v.GroupID)}
}

func (v PermitView) Text() string {
	return table(permitHeader, [][]string{v.row()})
}

// PermitList is a list of permits.
type PermitList []PermitView

func newPermitList(ps []model.Permit) PermitList {
	out := make(PermitList, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPermitView(p))
	}
	return out
}

func (l PermitList) Text() string {
	rows := make([][]string, 0, len(l))
	for _, v := range l {
		rows = append(rows, v.row())
	}
	return table(permitHeader, rows)
}

// DocumentView is document metadata. Data is only set by doc get in JSON
// output.
type DocumentView struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	PostedAt    time.Time `json:"posted_at"`
	PostedBy    string    `json:"posted_by,omitempty"`
	Data        []byte    `json:"data,omitempty"`
}

func newDocumentView(k model.Keeper) DocumentView {
	return DocumentView{
		ID:          k.ID,
		Filename:    k.Filename,
		ContentType: k.ContentType,
		Description: k.Description,
		Category:    k.Category,
		PostedAt:    k.PostedAt,
		PostedBy:    k.PostedBy,
	}
}

var documentHeader = []string{"ID", "FILENAME", "TYPE", "CATEGORY", "POSTED BY"}

func (v DocumentView) row() []string {
	return []string{v.ID, v.Filename, v.ContentType, orDash(v.Category), orDash(v.PostedBy)}
}

func (v DocumentView) Text() string {
	return table(documentHeader, [][]string{v.row()})
}

// DocumentList is a list of documents.
type DocumentList []DocumentView

func newDocumentList(ks []model.Keeper) DocumentList {
	out := make(DocumentList, 0, len(ks))
	for _, k := range ks {
		out = append(out, newDocumentView(k))
	}
	return out
}

func (l DocumentList) Text() string {
	rows := make([][]string, 0, len(l))
	for _, v := range l {
		rows = append(rows, v.row())
	}
	return table(documentHeader, rows)
}

// AccessView reports whether a user may read a document and why.
type AccessView struct {
	UserID     string       `json:"user_id"`
	DocumentID string       `json:"document_id"`
	Allowed    bool         `json:"allowed"`
	Basis      access.Basis `json:"basis"`
}

func (v AccessView) Text() string {
	verdict := "denied"
	if v.Allowed {
		verdict = "allowed"
	}
	return fmt.Sprintf("%s -> %s: %s (%s)\n", v.UserID, v.DocumentID, verdict, v.Basis)
}

// MessageView is a one-line acknowledgement.
type MessageView struct {
	Message string `json:"message"`
}

func (v MessageView) Text() string {
	return v.Message + "\n"
}
