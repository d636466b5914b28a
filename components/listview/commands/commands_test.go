package commands

import (
	"context"
	"errors"
	"testing"

	listview "github.com/goliatone/go-listview/components/listview"
)

func TestSaveColumnsCommand(t *testing.T) {
	service := &stubService{}
	telemetry := &stubTelemetry{}
	cmd := NewSaveColumnsCommand(service, telemetry)
	msg := SaveColumnsInput{
		Viewer:  listview.ViewerContext{UserID: "u1"},
		Table:   "bets",
		Columns: []listview.ColumnRule{{ID: "id", Enabled: true}},
	}
	if err := cmd.Execute(context.Background(), msg); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	msg.Export = true
	if err := cmd.Execute(context.Background(), msg); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.columnCalls != 1 || service.exportCalls != 1 {
		t.Fatalf("expected one list and one export save, got %d/%d", service.columnCalls, service.exportCalls)
	}
	if len(telemetry.events) != 2 || telemetry.events[1] != "listview.export_columns.save" {
		t.Fatalf("unexpected telemetry %v", telemetry.events)
	}
}

func TestSaveColumnsCommandRequiresTable(t *testing.T) {
	cmd := NewSaveColumnsCommand(&stubService{}, nil)
	if err := cmd.Execute(context.Background(), SaveColumnsInput{}); err == nil {
		t.Fatalf("expected error for missing table")
	}
}

func TestSaveSortingCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewSaveSortingCommand(service, nil)
	err := cmd.Execute(context.Background(), SaveSortingInput{Table: "bets", Sorting: listview.Sort{Field: "stake"}})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.sorting.Field != "stake" {
		t.Fatalf("expected sorting to be forwarded, got %+v", service.sorting)
	}
}

func TestSavePinnedFieldsCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewSavePinnedFieldsCommand(service, nil)
	if err := cmd.Execute(context.Background(), SavePinnedFieldsInput{Table: "bets", Fields: []string{"id"}}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.pinnedCalls != 1 {
		t.Fatalf("expected pinned call")
	}
}

func TestSavePerPageCommandRejectsNonPositive(t *testing.T) {
	service := &stubService{}
	cmd := NewSavePerPageCommand(service, nil)
	if err := cmd.Execute(context.Background(), SavePerPageInput{Table: "bets"}); err == nil {
		t.Fatalf("expected error for zero page size")
	}
	if err := cmd.Execute(context.Background(), SavePerPageInput{Table: "bets", PerPage: 100}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.perPage != 100 {
		t.Fatalf("expected per page 100, got %d", service.perPage)
	}
}

func TestSelectRowsCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewSelectRowsCommand(service, nil)
	err := cmd.Execute(context.Background(), SelectRowsInput{Table: "bets", Action: listview.ActionSelectPage, IDs: []string{"a"}})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.selectCalls != 1 {
		t.Fatalf("expected select call")
	}
	if err := cmd.Execute(context.Background(), SelectRowsInput{Table: "bets"}); err == nil {
		t.Fatalf("expected error for missing action")
	}
}

func TestSelectRowsCommandPropagatesErrors(t *testing.T) {
	service := &stubService{err: errors.New("unknown action")}
	cmd := NewSelectRowsCommand(service, nil)
	if err := cmd.Execute(context.Background(), SelectRowsInput{Table: "bets", Action: "flip"}); err == nil {
		t.Fatalf("expected service error")
	}
}

func TestRefreshListCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewRefreshListCommand(service, nil)
	if err := cmd.Execute(context.Background(), RefreshListInput{Event: listview.ListEvent{Table: "bets"}}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.refreshCalls != 1 || service.lastEvent.Reason != "refresh" {
		t.Fatalf("expected refresh event with default reason, got %+v", service.lastEvent)
	}
}

func TestCommandsRequireService(t *testing.T) {
	if err := NewSaveSortingCommand(nil, nil).Execute(context.Background(), SaveSortingInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
	if err := NewRefreshListCommand(nil, nil).Execute(context.Background(), RefreshListInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
}

type stubService struct {
	columnCalls  int
	exportCalls  int
	pinnedCalls  int
	selectCalls  int
	refreshCalls int
	perPage      int
	sorting      listview.Sort
	lastEvent    listview.ListEvent
	err          error
}

func (s *stubService) SaveColumns(context.Context, listview.ViewerContext, string, []listview.ColumnRule) (listview.TableSetting, error) {
	s.columnCalls++
	return listview.TableSetting{}, s.err
}

func (s *stubService) SaveExportColumns(context.Context, listview.ViewerContext, string, []listview.ColumnRule) (listview.TableSetting, error) {
	s.exportCalls++
	return listview.TableSetting{}, s.err
}

func (s *stubService) SaveSorting(_ context.Context, _ listview.ViewerContext, _ string, sort listview.Sort) (listview.TableSetting, error) {
	s.sorting = sort
	return listview.TableSetting{}, s.err
}

func (s *stubService) SavePinnedFields(context.Context, listview.ViewerContext, string, []string) (listview.TableSetting, error) {
	s.pinnedCalls++
	return listview.TableSetting{}, s.err
}

func (s *stubService) SavePerPage(_ context.Context, _ listview.ViewerContext, _ string, perPage int) (listview.TableSetting, error) {
	s.perPage = perPage
	return listview.TableSetting{}, s.err
}

func (s *stubService) Select(context.Context, listview.ViewerContext, string, listview.SelectionAction, []string) (listview.Selection, error) {
	s.selectCalls++
	return listview.Selection{}, s.err
}

func (s *stubService) NotifyListUpdated(_ context.Context, event listview.ListEvent) error {
	s.refreshCalls++
	s.lastEvent = event
	return s.err
}

type stubTelemetry struct {
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.events = append(s.events, event)
}
