package listview

const (
	defaultPerPage        = 25
	defaultExportPageSize = 1000
)

// Capabilities gating default columns.
const (
	CapViewClients  = "clients.view"
	CapViewRisk     = "bets.risk"
	CapViewAgents   = "agents.view"
	CapViewFinance  = "finance.view"
	CapManageTeam   = "team.manage"
	CapManageAccess = "security.manage"
)

// BetStatuses maps numeric bet status codes to their labels.
var BetStatuses = map[string]string{
	"1": "Open",
	"2": "Settled Win",
	"3": "Settled Lose",
	"4": "Void",
	"5": "Cashed Out",
	"6": "Cancelled",
}

// BetTypes maps bet type codes to their labels.
var BetTypes = map[string]string{
	"sports":  "Sports",
	"casino":  "Casino",
	"live":    "Live",
	"virtual": "Virtual",
}

// MemberStatuses maps member status codes to their labels.
var MemberStatuses = map[string]string{
	"active":   "Active",
	"invited":  "Invited",
	"disabled": "Disabled",
}

var defaultTableDefinitions = []TableDefinition{
	{
		Name:     "bets",
		Resource: "/bets",
		ItemsKey: "bets",
		Columns: []Column{
			{ID: "id", Label: "Bet ID", Kind: KindText, Enabled: true},
			{ID: "client_id", Label: "Client ID", Kind: KindText, Enabled: true, Capability: CapViewClients, Filter: "client_id"},
			{ID: "client_name", Label: "Client", Kind: KindText, Enabled: true, Capability: CapViewClients},
			{ID: "bet_type", Label: "Bet Type", Kind: KindEnum, Enabled: true, Options: BetTypes, Filter: "bet_type"},
			{ID: "status", Label: "Status", Kind: KindEnum, Enabled: true, Options: BetStatuses, Filter: "status"},
			{ID: "event_name", Label: "Event", Kind: KindText, Enabled: true, LabelLocalized: map[string]string{"es": "Evento"}},
			{ID: "odds", Label: "Odds", Kind: KindNumber, Enabled: true, Filter: "odds"},
			{ID: "stake", Label: "Stake", Kind: KindMoney, Enabled: true, Filter: "stake"},
			{ID: "payout", Label: "Payout", Kind: KindMoney, Enabled: true},
			{ID: "risk_score", Label: "Risk Score", Kind: KindNumber, Enabled: false, Capability: CapViewRisk},
			{ID: "agent_name", Label: "Agent", Kind: KindText, Enabled: false, Capability: CapViewAgents},
			{ID: "desk", Label: "Desk", Kind: KindText, Enabled: false, Capability: CapViewAgents},
			{ID: "currency", Label: "Currency", Kind: KindText, Enabled: false},
			{ID: "created_at", Label: "Placed At", Kind: KindDate, Enabled: true, Filter: "created_at"},
			{ID: "settled_at", Label: "Settled At", Kind: KindDate, Enabled: false},
		},
		Filters: []FilterSpec{
			{Key: "client_id", Label: "Client ID", Kind: FilterList},
			{Key: "bet_type", Label: "Bet Type", Kind: FilterEnum, Options: BetTypes},
			{Key: "status", Label: "Status", Kind: FilterEnum, Options: BetStatuses},
			{Key: "stake", Label: "Stake", Kind: FilterRange},
			{Key: "odds", Label: "Odds", Kind: FilterRange},
			{Key: "created_at", Label: "Placed At", Kind: FilterDate},
			{Key: "event_name", Label: "Event", Kind: FilterText},
		},
		DefaultSort:    Sort{Field: "created_at", Direction: SortDesc},
		DefaultPerPage: 50,
	},
	{
		Name:       "members",
		Resource:   "/company/members",
		ItemsKey:   "members",
		Capability: CapManageTeam,
		Columns: []Column{
			{ID: "id", Label: "ID", Enabled: false},
			{ID: "name", Label: "Name", Enabled: true},
			{ID: "email", Label: "Email", Enabled: true},
			{ID: "role_name", Label: "Role", Enabled: true, Filter: "role_id"},
			{ID: "desk", Label: "Desk", Enabled: true, Capability: CapViewAgents},
			{ID: "status", Label: "Status", Kind: KindEnum, Options: MemberStatuses, Enabled: true, Filter: "status"},
			{ID: "last_login_at", Label: "Last Login", Kind: KindDate, Enabled: true},
		},
		Filters: []FilterSpec{
			{Key: "role_id", Label: "Role", Kind: FilterList},
			{Key: "status", Label: "Status", Kind: FilterEnum, Options: MemberStatuses},
		},
		DefaultSort:    Sort{Field: "name", Direction: SortAsc},
		DefaultPerPage: 25,
	},
	{
		Name:       "roles",
		Resource:   "/company/roles",
		ItemsKey:   "roles",
		Capability: CapManageTeam,
		Columns: []Column{
			{ID: "id", Label: "ID", Enabled: false},
			{ID: "name", Label: "Role", Enabled: true},
			{ID: "members_count", Label: "Members", Kind: KindNumber, Enabled: true},
			{ID: "is_default", Label: "Default", Kind: KindBool, Enabled: true},
			{ID: "updated_at", Label: "Updated", Kind: KindDate, Enabled: true},
		},
		DefaultSort:    Sort{Field: "name", Direction: SortAsc},
		DefaultPerPage: 25,
	},
	{
		Name:       "ip_addresses",
		Resource:   "/company/ip-addresses",
		ItemsKey:   "ip_addresses",
		Capability: CapManageAccess,
		Columns: []Column{
			{ID: "id", Label: "ID", Enabled: false},
			{ID: "ip", Label: "IP Address", Enabled: true},
			{ID: "description", Label: "Description", Enabled: true},
			{ID: "created_by", Label: "Created By", Enabled: true},
			{ID: "created_at", Label: "Created", Kind: KindDate, Enabled: true},
		},
		Filters: []FilterSpec{
			{Key: "ip", Label: "IP Address", Kind: FilterText},
		},
		DefaultPerPage: 25,
	},
}

// DefaultTableDefinitions returns copies of the built-in tables.
func DefaultTableDefinitions() []TableDefinition {
	out := make([]TableDefinition, len(defaultTableDefinitions))
	for i, def := range defaultTableDefinitions {
		def.Columns = append([]Column(nil), def.Columns...)
		def.Filters = append([]FilterSpec(nil), def.Filters...)
		out[i] = def
	}
	return out
}
