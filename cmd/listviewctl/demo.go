package main

import (
	"fmt"
	"time"

	"github.com/goliatone/go-listview/components/listview"
	"github.com/goliatone/go-listview/pkg/backend"
)

// demoData seeds the mock backend enabled by backend.mock.
func demoData() backend.MockData {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	statuses := []string{"1", "2", "3", "4"}
	types := []string{"sports", "casino", "live"}

	bets := make([]listview.Row, 0, 60)
	for i := 0; i < 60; i++ {
		bets = append(bets, listview.Row{
			"id":          fmt.Sprintf("bet-%03d", i+1),
			"client_id":   fmt.Sprintf("c%02d", i%12+1),
			"client_name": fmt.Sprintf("Client %02d", i%12+1),
			"bet_type":    types[i%len(types)],
			"status":      statuses[i%len(statuses)],
			"stake":       float64(10 + i*5),
			"odds":        1.5 + float64(i%7)/4,
			"event_name":  fmt.Sprintf("Match %d", i/3+1),
			"created_at":  base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
	}
	members := []listview.Row{
		{"id": "m1", "name": "Ana Ortiz", "email": "ana@example.com", "role_name": "Admin", "status": "active"},
		{"id": "m2", "name": "Ben Cole", "email": "ben@example.com", "role_name": "Agent", "status": "invited"},
		{"id": "m3", "name": "Chen Li", "email": "chen@example.com", "role_name": "Agent", "status": "disabled"},
	}
	roles := []listview.Row{
		{"id": "r1", "name": "Admin", "members_count": 1, "is_default": false},
		{"id": "r2", "name": "Agent", "members_count": 2, "is_default": true},
	}
	ips := []listview.Row{
		{"id": "ip1", "ip": "10.0.0.1", "description": "Office", "created_by": "Ana Ortiz"},
	}
	return backend.MockData{
		Rows: map[string][]listview.Row{
			"/bets":                 bets,
			"/company/members":      members,
			"/company/roles":        roles,
			"/company/ip-addresses": ips,
		},
	}
}
