/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package actor

/*
Egress receives results which leave the runtime (e.g. replies to REST clients).
*/
type Egress interface {

	/*
		Emit emits a record to a topic.
	*/
	Emit(topic string, key string, value []byte)
}

/*
EgressRecord is a record which was emitted to an egress.
*/
type EgressRecord struct {
	Topic string
	Key   string
	Value []byte
}

/*
ChannelEgress is an egress which writes all records to a channel.
*/
type ChannelEgress struct {
	C chan *EgressRecord
}

/*
NewChannelEgress creates a new ChannelEgress with a given channel buffer size.
*/
func NewChannelEgress(size int) *ChannelEgress {
	return &ChannelEgress{make(chan *EgressRecord, size)}
}

/*
Emit writes a record to the channel.
*/
func (ce *ChannelEgress) Emit(topic string, key string, value []byte) {
	ce.C <- &EgressRecord{topic, key, value}
}

/*
Drain returns all records which are currently buffered.
*/
func (ce *ChannelEgress) Drain() []*EgressRecord {
	var res []*EgressRecord

	for {
		select {
		case r := <-ce.C:
			res = append(res, r)
		default:
			return res
		}
	}
}

/*
NullEgress is an egress which discards all records.
*/
type NullEgress struct {
}

/*
Emit discards the record.
*/
func (NullEgress) Emit(topic string, key string, value []byte) {
}
