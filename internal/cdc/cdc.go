// Package cdc tails a PostgreSQL logical replication slot and emits the
// column values carried by INSERT and UPDATE messages. Deletes are ignored:
// a distinct-count stream only ever grows with observed values.
package cdc

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/yourusername/cardinality-auditor/internal/config"
)

// Event is one row change: the qualified table name and the text form of
// every non-null column value in the new tuple.
type Event struct {
	Table  string
	Values map[string]string
}

type Listener struct {
	config    config.CDCConfig
	dbConfig  config.DatabaseConfig
	eventChan chan Event
	stopChan  chan struct{}
	conn      *pgconn.PgConn
	relations map[uint32]*pglogrepl.RelationMessage
	walPos    pglogrepl.LSN
}

func NewListener(cfg config.CDCConfig, dbCfg config.DatabaseConfig) *Listener {
	return &Listener{
		config:    cfg,
		dbConfig:  dbCfg,
		eventChan: make(chan Event, 1000),
		stopChan:  make(chan struct{}),
		relations: make(map[uint32]*pglogrepl.RelationMessage),
	}
}

func (l *Listener) Start() error {
	connConfig, err := pgconn.ParseConfig(fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?replication=database",
		l.dbConfig.User, l.dbConfig.Password, l.dbConfig.Host, l.dbConfig.Port, l.dbConfig.Database,
	))
	if err != nil {
		return fmt.Errorf("parsing replication config: %w", err)
	}

	conn, err := pgconn.ConnectConfig(context.Background(), connConfig)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	l.conn = conn

	// Create the replication slot if it doesn't exist yet.
	_, err = pglogrepl.CreateReplicationSlot(context.Background(), l.conn, l.config.SlotName, "pgoutput", pglogrepl.CreateReplicationSlotOptions{Temporary: false})
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "SQLSTATE 42710") {
			log.Printf("Warning: Failed to create replication slot: %v", err)
		}
	}

	log.Printf("Starting logical replication on slot %s", l.config.SlotName)
	err = pglogrepl.StartReplication(context.Background(), l.conn, l.config.SlotName, 0, pglogrepl.StartReplicationOptions{
		PluginArgs: []string{"proto_version '1'", fmt.Sprintf("publication_names '%s'", l.config.Publication)},
	})
	if err != nil {
		return fmt.Errorf("starting replication: %w", err)
	}

	go l.listen()
	return nil
}

func (l *Listener) listen() {
	defer func() {
		if l.conn != nil {
			l.conn.Close(context.Background())
		}
		close(l.eventChan)
	}()

	standbyMessageTimeout := time.Second * 10
	nextStandbyMessageDeadline := time.Now().Add(standbyMessageTimeout)

	for {
		select {
		case <-l.stopChan:
			return
		default:
			if time.Now().After(nextStandbyMessageDeadline) {
				err := pglogrepl.SendStandbyStatusUpdate(context.Background(), l.conn, pglogrepl.StandbyStatusUpdate{WALWritePosition: l.walPos})
				if err != nil {
					log.Printf("Failed to send standby status update: %v", err)
				}
				nextStandbyMessageDeadline = time.Now().Add(standbyMessageTimeout)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			msg, err := l.conn.ReceiveMessage(ctx)
			cancel()

			if err != nil {
				if pgconn.Timeout(err) {
					continue
				}
				select {
				case <-l.stopChan:
					return
				default:
					log.Printf("ReceiveMessage failed: %v", err)
					return
				}
			}

			switch msg := msg.(type) {
			case *pgproto3.CopyData:
				switch msg.Data[0] {
				case pglogrepl.PrimaryKeepaliveMessageByteID:
					pkm, err := pglogrepl.ParsePrimaryKeepaliveMessage(msg.Data[1:])
					if err != nil {
						log.Printf("ParsePrimaryKeepaliveMessage failed: %v", err)
						continue
					}
					if pkm.ReplyRequested {
						nextStandbyMessageDeadline = time.Time{}
					}

				case pglogrepl.XLogDataByteID:
					xld, err := pglogrepl.ParseXLogData(msg.Data[1:])
					if err != nil {
						log.Printf("ParseXLogData failed: %v", err)
						continue
					}

					l.processLogicalMsg(xld.WALData)
					l.walPos = xld.WALStart + pglogrepl.LSN(len(xld.WALData))
				}
			default:
				if msg != nil {
					log.Printf("Received unexpected message: %T", msg)
				}
			}
		}
	}
}

func (l *Listener) processLogicalMsg(data []byte) {
	logicalMsg, err := pglogrepl.Parse(data)
	if err != nil {
		log.Printf("Parse logical message failed: %v", err)
		return
	}

	switch logicalMsg := logicalMsg.(type) {
	case *pglogrepl.RelationMessage:
		l.relations[logicalMsg.RelationID] = logicalMsg

	case *pglogrepl.InsertMessage:
		rel, ok := l.relations[logicalMsg.RelationID]
		if !ok {
			log.Printf("Unknown relation ID: %d", logicalMsg.RelationID)
			return
		}
		l.emit(rel, logicalMsg.Tuple)

	case *pglogrepl.UpdateMessage:
		rel, ok := l.relations[logicalMsg.RelationID]
		if !ok {
			log.Printf("Unknown relation ID: %d", logicalMsg.RelationID)
			return
		}
		l.emit(rel, logicalMsg.NewTuple)
	}
}

func (l *Listener) emit(rel *pglogrepl.RelationMessage, tuple *pglogrepl.TupleData) {
	values := ExtractValues(rel, tuple)
	if len(values) == 0 {
		return
	}

	ev := Event{Table: rel.Namespace + "." + rel.RelationName, Values: values}

	select {
	case l.eventChan <- ev:
	case <-l.stopChan:
	}
}

// ExtractValues maps the column names of rel to the text values in tuple.
// Null and unchanged-TOAST columns are omitted.
func ExtractValues(rel *pglogrepl.RelationMessage, tuple *pglogrepl.TupleData) map[string]string {
	if tuple == nil {
		return nil
	}

	values := make(map[string]string)
	for idx, col := range tuple.Columns {
		if idx >= len(rel.Columns) {
			break
		}
		if col.DataType == pglogrepl.TupleDataTypeText {
			values[rel.Columns[idx].Name] = string(col.Data)
		}
	}
	return values
}

func (l *Listener) Stop() {
	close(l.stopChan)
}

func (l *Listener) Events() <-chan Event {
	return l.eventChan
}
