package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

func TestKafkaSink_PushWaitsForAck(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got model.HECEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.SourceType != "duo:administrator" || got.Time != 1020 {
			return errors.New("unexpected event value")
		}
		return nil
	})
	d := &driver{cfg: Config{Topic: "duo-events"}, p: mp}

	ev := model.Event{Time: 1020, Host: "h", SourceType: "duo:administrator", Payload: json.RawMessage(`{}`)}
	if err := d.Push(context.Background(), ev); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaSink_BrokerFailureSurfaces(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	d := &driver{cfg: Config{Topic: "duo-events"}, p: mp}

	err := d.Push(context.Background(), model.Event{SourceType: "duo:auth"})
	if !errors.Is(err, sarama.ErrNotLeaderForPartition) {
		t.Fatalf("want broker error, got %v", err)
	}
	_ = d.Close()
}

func TestKafkaSink_ConfigureValidates(t *testing.T) {
	d := &driver{}
	if err := d.Configure("nope"); err == nil {
		t.Fatal("expected type error")
	}
	if err := d.Configure(Config{Topic: "t"}); err == nil {
		t.Fatal("expected missing brokers error")
	}
}

func TestSaramaConfig(t *testing.T) {
	sc, err := saramaConfig(Config{Version: "3.6.0", SASLUser: "u", SASLPass: "p", TLSEn: true})
	if err != nil {
		t.Fatalf("saramaConfig: %v", err)
	}
	if sc.Producer.RequiredAcks != sarama.WaitForAll || !sc.Producer.Return.Successes {
		t.Fatalf("producer must wait for acks: %+v", sc.Producer)
	}
	if !sc.Net.SASL.Enable || !sc.Net.TLS.Enable {
		t.Fatal("auth settings not applied")
	}
	if _, err := saramaConfig(Config{Version: "not-a-version"}); err == nil {
		t.Fatal("expected version parse error")
	}
}

func TestSaramaConfig_RequiredAcks(t *testing.T) {
	acks := func(v int16) *int16 { return &v }

	sc, err := saramaConfig(Config{Acks: acks(1)})
	if err != nil || sc.Producer.RequiredAcks != sarama.WaitForLocal {
		t.Fatalf("acks=1: %v %v", sc, err)
	}
	sc, err = saramaConfig(Config{Acks: acks(-1)})
	if err != nil || sc.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatalf("acks=-1: %v %v", sc, err)
	}
	for _, bad := range []int16{0, 2} {
		if _, err := saramaConfig(Config{Acks: acks(bad)}); err == nil {
			t.Fatalf("acks=%d should be rejected", bad)
		}
	}
	d := &driver{}
	if err := d.Configure(Config{Brokers: []string{"127.0.0.1:1"}, Topic: "t", Acks: acks(0)}); err == nil {
		t.Fatal("Configure must reject acks=0 before dialing")
	}
}
