package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/folio/internal/session"
	"github.com/naveenspark/folio/pkg/chat"
	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
	"github.com/naveenspark/folio/pkg/inbox"
)

type view int

const (
	viewInvoices view = iota
	viewClients
	viewUsers
	viewRequests
	viewNotifications
	viewChat
	viewMyInvoices
	viewProfile
)

var viewNames = map[view]string{
	viewInvoices:      "Invoices",
	viewClients:       "Clients",
	viewUsers:         "Users",
	viewRequests:      "Requests",
	viewNotifications: "Notifications",
	viewChat:          "Chat",
	viewMyInvoices:    "My invoices",
	viewProfile:       "Profile",
}

// tabsFor lists the screens an identity may open, in tab order.
func tabsFor(id domain.Identity) []view {
	if domain.IsCustomer(id) {
		return []view{viewMyInvoices, viewNotifications, viewChat, viewProfile}
	}
	tabs := []view{viewInvoices, viewClients}
	if domain.CanManageUsers(id) {
		tabs = append(tabs, viewUsers)
	}
	if domain.CanReviewRequests(id) {
		tabs = append(tabs, viewRequests)
	}
	return append(tabs, viewNotifications, viewChat, viewProfile)
}

// sessionMsg carries a new session state from session.Manager.Watch.
type sessionMsg struct{ st session.State }

type logoutDoneMsg struct{}

// Deps is everything the TUI drives. Any engine may be nil in tests.
type Deps struct {
	Session *session.Manager
	Client  *client.Client
	Inbox   *inbox.Inbox
	Desk    *chat.Desk
	Alerts  *Alerter
	Version string
}

// App is the root Bubbletea model.
type App struct {
	deps     Deps
	watch    <-chan session.State
	unwatch  func()
	sess     session.State
	tabs     []view
	view     view
	login    loginModel
	invoices invoicesModel
	clients  clientsModel
	users    usersModel
	requests requestsModel
	notifs   notificationsModel
	chat     chatModel
	mine     myInvoicesModel
	profile  profileModel

	inboxSt  inbox.State
	deskSt   chat.State
	toast    string
	toastID  int
	update   string
	helpOpen bool
	width    int
	height   int
	frame    int // logo shimmer animation frame
}

// NewApp creates the TUI. Call Close when the program exits.
func NewApp(d Deps) App {
	a := App{deps: d, unwatch: func() {}}
	if d.Session != nil {
		a.login = newLoginModel(d.Session)
		a.watch, a.unwatch = d.Session.Watch()
	} else {
		a.login = newLoginModel(nil)
	}
	return a
}

// Close stops watching the session.
func (a App) Close() {
	a.unwatch()
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		shimmerTickCmd(),
		a.waitSession(),
		a.waitInbox(),
		a.waitDesk(),
		waitAlert(a.deps.Alerts),
		checkVersion(a.deps.Version),
	)
}

func (a App) waitSession() tea.Cmd {
	ch := a.watch
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return sessionMsg{st: st}
	}
}

func (a App) waitInbox() tea.Cmd {
	if a.deps.Inbox == nil {
		return nil
	}
	ch := a.deps.Inbox.Changes()
	return func() tea.Msg {
		<-ch
		return inboxChangedMsg{}
	}
}

func (a App) waitDesk() tea.Cmd {
	if a.deps.Desk == nil {
		return nil
	}
	ch := a.deps.Desk.Changes()
	return func() tea.Msg {
		<-ch
		return deskChangedMsg{}
	}
}

// signedIn rebuilds the screens for a freshly authenticated identity.
func (a App) signedIn(id domain.Identity) (App, tea.Cmd) {
	c := a.deps.Client
	staff := domain.IsStaff(id)
	a.tabs = tabsFor(id)
	a.view = a.tabs[0]
	a.invoices = newInvoicesModel(c, domain.CanManageInvoices(id))
	a.clients = newClientsModel(c)
	a.users = newUsersModel(c)
	a.requests = newRequestsModel(c)
	a.mine = newMyInvoicesModel(c)
	a.profile = newProfileModel(c, staff)

	var ne notificationEngine
	if a.deps.Inbox != nil {
		ne = a.deps.Inbox
	}
	a.notifs = newNotificationsModel(ne, c, staff)
	var ce chatEngine
	if a.deps.Desk != nil {
		ce = a.deps.Desk
	}
	a.chat = newChatModel(ce, c, id)

	a = a.resize()
	return a, a.initView()
}

func (a App) resize() App {
	// Chrome: header(2) + tabs(1) + banner(1) + help(1) = 5 lines
	bodyMsg := tea.WindowSizeMsg{Width: a.width, Height: a.height - 5}
	a.login, _ = a.login.Update(bodyMsg)
	a.invoices, _ = a.invoices.Update(bodyMsg)
	a.clients, _ = a.clients.Update(bodyMsg)
	a.users, _ = a.users.Update(bodyMsg)
	a.requests, _ = a.requests.Update(bodyMsg)
	a.notifs, _ = a.notifs.Update(bodyMsg)
	a.chat, _ = a.chat.Update(bodyMsg)
	a.mine, _ = a.mine.Update(bodyMsg)
	a.profile, _ = a.profile.Update(bodyMsg)
	return a
}

func (a App) initView() tea.Cmd {
	switch a.view {
	case viewInvoices:
		return a.invoices.Init()
	case viewClients:
		return a.clients.Init()
	case viewUsers:
		return a.users.Init()
	case viewRequests:
		return a.requests.Init()
	case viewNotifications:
		return a.notifs.Init()
	case viewChat:
		return a.chat.Init()
	case viewMyInvoices:
		return a.mine.Init()
	case viewProfile:
		return a.profile.Init()
	}
	return nil
}

func (a App) switchTo(v view) (App, tea.Cmd) {
	if v == a.view {
		return a, nil
	}
	a.view = v
	return a, a.initView()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a.resize(), nil

	case shimmerTickMsg:
		a.frame++
		a.chat.frame = a.frame
		return a, shimmerTickCmd()

	case versionCheckMsg:
		if msg.latest != "" {
			a.update = "folio " + msg.latest + " available"
		}
		return a, nil

	case sessionMsg:
		prev := a.sess
		a.sess = msg.st
		next := a.waitSession()
		switch msg.st.Status {
		case session.Authenticated:
			if prev.Status != session.Authenticated || prev.Identity.UserID() != msg.st.Identity.UserID() {
				var cmd tea.Cmd
				a, cmd = a.signedIn(msg.st.Identity)
				return a, tea.Batch(next, cmd)
			}
		case session.Unauthenticated:
			a.tabs = nil
			a.helpOpen = false
			a.login.errMsg = msg.st.Err
			a.login.form.busy = false
		}
		return a, next

	case inboxChangedMsg:
		if a.deps.Inbox != nil {
			a.inboxSt = a.deps.Inbox.Snapshot()
			a.notifs = a.notifs.setState(a.inboxSt)
		}
		return a, a.waitInbox()

	case deskChangedMsg:
		if a.deps.Desk != nil {
			a.deskSt = a.deps.Desk.Snapshot()
			a.chat = a.chat.setState(a.deskSt)
		}
		return a, a.waitDesk()

	case alertMsg:
		a.toastID++
		a.toast = msg.n.Title
		if msg.n.Message != "" {
			a.toast += ": " + oneLine(msg.n.Message)
		}
		return a, tea.Batch(waitAlert(a.deps.Alerts), expireToast(a.toastID))

	case toastExpiredMsg:
		if msg.id == a.toastID {
			a.toast = ""
		}
		return a, nil

	case logoutDoneMsg:
		return a, nil

	case loginDoneMsg:
		a.login, _ = a.login.Update(msg)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.sess.Status != session.Authenticated {
			var cmd tea.Cmd
			a.login, cmd = a.login.Update(msg)
			return a, cmd
		}

		// Help overlay captures all keys when open
		if a.helpOpen {
			switch msg.String() {
			case "h", "esc", "q":
				a.helpOpen = false
			}
			return a, nil
		}

		// Global keys (only when not editing)
		if !a.isEditing() {
			switch k := msg.String(); k {
			case "h":
				a.helpOpen = true
				return a, nil
			case "q":
				return a, tea.Quit
			case "L":
				return a, a.logout()
			case "tab":
				return a.switchTo(a.tabs[(a.tabIndex()+1)%len(a.tabs)])
			case "shift+tab":
				return a.switchTo(a.tabs[(a.tabIndex()-1+len(a.tabs))%len(a.tabs)])
			case "1", "2", "3", "4", "5", "6", "7", "8":
				if i := int(k[0] - '1'); i < len(a.tabs) {
					return a.switchTo(a.tabs[i])
				}
				return a, nil
			}
		}
	}

	if a.sess.Status != session.Authenticated {
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	switch a.view {
	case viewInvoices:
		a.invoices, cmd = a.invoices.Update(msg)
	case viewClients:
		a.clients, cmd = a.clients.Update(msg)
	case viewUsers:
		a.users, cmd = a.users.Update(msg)
	case viewRequests:
		a.requests, cmd = a.requests.Update(msg)
	case viewNotifications:
		a.notifs, cmd = a.notifs.Update(msg)
	case viewChat:
		a.chat, cmd = a.chat.Update(msg)
	case viewMyInvoices:
		a.mine, cmd = a.mine.Update(msg)
	case viewProfile:
		a.profile, cmd = a.profile.Update(msg)
	}
	return a, cmd
}

func (a App) logout() tea.Cmd {
	s := a.deps.Session
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		s.Logout(context.Background())
		return logoutDoneMsg{}
	}
}

func (a App) tabIndex() int {
	for i, v := range a.tabs {
		if v == a.view {
			return i
		}
	}
	return 0
}

func (a App) isEditing() bool {
	switch a.view {
	case viewInvoices:
		return a.invoices.form != nil || a.invoices.searching || a.invoices.confirm != ""
	case viewClients:
		return a.clients.form != nil || a.clients.searching || a.clients.confirm
	case viewUsers:
		return a.users.form != nil || a.users.confirm
	case viewRequests:
		return a.requests.reject != nil
	case viewNotifications:
		return a.notifs.confirm != ""
	case viewChat:
		return a.chat.subject != nil || a.chat.inConversation()
	case viewProfile:
		return a.profile.form != nil
	}
	return false
}

// banner reports live-connection trouble. The engines clear their error
// after a few seconds, which clears the banner.
func (a App) banner() string {
	var parts []string
	if a.inboxSt.Err != "" {
		parts = append(parts, a.inboxSt.Err)
	}
	if a.deskSt.Err != "" {
		parts = append(parts, a.deskSt.Err)
	}
	if len(parts) == 0 {
		return ""
	}
	return bannerStyle.Render(" " + strings.Join(parts, " · ") + " ")
}

func (a App) header() string {
	logo := renderShimmerLogo(a.frame)
	logoPad := (a.width - lipgloss.Width(logo)) / 2
	if logoPad < 0 {
		logoPad = 0
	}
	header := strings.Repeat(" ", logoPad) + logo

	var parts []string
	if id := a.sess.Identity; id != nil && a.sess.Status == session.Authenticated {
		who := id.Name()
		if s, ok := id.(domain.StaffIdentity); ok {
			who += " " + RoleBadge(s.Role)
		}
		if c, ok := id.(domain.CustomerIdentity); ok && c.ClientCode != "" {
			who += " " + metaStyle.Render(c.ClientCode)
		}
		parts = append(parts, who)
	}
	if a.update != "" {
		parts = append(parts, accentStyle.Render(a.update))
	}
	line := metaStyle.Render(strings.Join(parts, metaStyle.Render(" · ")))
	pad := (a.width - lipgloss.Width(line)) / 2
	if pad < 0 {
		pad = 0
	}
	return header + "\n" + strings.Repeat(" ", pad) + line
}

func (a App) tabBar() string {
	if len(a.tabs) == 0 {
		return ""
	}
	colWidth := a.width / len(a.tabs)
	var tabBar strings.Builder
	for i, v := range a.tabs {
		key := fmt.Sprintf("%d", i+1)
		var label string
		if v == a.view {
			label = accentStyle.Render(key) + " " + selectedStyle.Underline(true).Render(viewNames[v])
		} else {
			label = metaStyle.Render(key) + " " + dimStyle.Render(viewNames[v])
		}
		switch {
		case v == viewNotifications && a.inboxSt.Unread > 0:
			label += " " + unreadBadgeStyle.Render(fmt.Sprintf("%d", a.inboxSt.Unread))
		case v == viewChat && a.deskSt.TotalUnread > 0:
			label += " " + unreadBadgeStyle.Render(fmt.Sprintf("%d", a.deskSt.TotalUnread))
		}
		labelWidth := lipgloss.Width(label)
		leftPad := (colWidth - labelWidth) / 2
		if leftPad < 0 {
			leftPad = 0
		}
		rightPad := colWidth - labelWidth - leftPad
		if rightPad < 0 {
			rightPad = 0
		}
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}
	return tabBar.String()
}

func (a App) View() string {
	header := a.header()

	var body, help string
	switch {
	case a.sess.Status == session.Loading && !a.login.form.busy:
		body = "\n " + dimStyle.Render("restoring session...")
	case a.sess.Status != session.Authenticated:
		body = a.login.View()
		help = " " + helpEntry("ctrl+c", "quit")
	case a.helpOpen:
		body = helpView()
		help = " " + helpEntry("esc", "close")
	default:
		switch a.view {
		case viewInvoices:
			body, help = a.invoices.View(), a.invoices.helpKeys()
		case viewClients:
			body, help = a.clients.View(), a.clients.helpKeys()
		case viewUsers:
			body, help = a.users.View(), a.users.helpKeys()
		case viewRequests:
			body, help = a.requests.View(), a.requests.helpKeys()
		case viewNotifications:
			body, help = a.notifs.View(), a.notifs.helpKeys()
		case viewChat:
			body, help = a.chat.View(), a.chat.helpKeys()
		case viewMyInvoices:
			body, help = a.mine.View(), a.mine.helpKeys()
		case viewProfile:
			body, help = a.profile.View(), a.profile.helpKeys()
		}
		if !a.isEditing() {
			help += "  " + helpBar("1-"+fmt.Sprint(len(a.tabs)), "tabs", "L", "logout", "h", "help", "q", "quit")
		}
		help = " " + help
	}

	status := a.banner()
	if status == "" && a.toast != "" {
		status = toastStyle.Render(" " + truncStr(a.toast, a.width-2) + " ")
	}

	// Chrome budget: header(2) + tabs(1) + status(1) + help(1) = 5 lines + body
	chrome := 5
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, a.tabBar(), body, status, help)
}
