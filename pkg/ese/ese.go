/*
Package ese manages the session with an embedded secure element (eSE) reached
through a half-duplex block link, typically T=1 over SPI.

The package does two things:
  - It guards the link with a lifecycle state machine (Closed, Open, Idle,
    Busy) so the hardware channel is never opened twice, used before it is
    open, used after it is closed, or entered by two exchanges at once.
  - It splits commands longer than the negotiated information field size
    (IFSC) into link-sized frames, drives them in order and returns the
    response of the final frame.

The link itself (framing, CRC, retransmission) is provided by a Driver; see
package link for PC/SC and socket implementations, and package esetest for a
scripted in-memory one.

# Usage

	s, err := ese.New(ese.Config{
	    Driver:        link.PCSCDriver{Params: ese.Params{IFSC: 254}},
	    Properties:    cfg,
	    LoggerFactory: cfg.LoggerFactory(),
	})
	if err != nil {
	    log.Fatal(err)
	}

	if err := s.Init(); err != nil {
	    log.Fatalf("init: %v (%s)", err, ese.StatusOf(err))
	}
	defer s.Close()

	rsp, err := s.Transceive(apdu)

A Session satisfies iso7816.Transmitter, so APDU-level helpers can run on it:

	client := iso7816.NewClient(s)
*/
package ese
